package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"github.com/wricardo/tilepuzzle/game/service"
)

// Client is a thin MCP server whose tools proxy to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string, version string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.mcpServer = server.NewMCPServer(
		"Tile Puzzle",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tile Puzzle - MCP Interface

All tools proxy to the REST API of the puzzle server.

GOAL:
Walk the player (@) onto the exit (E) of every level. Push blocks out of
the way, raft across water and keep away from balls (o) and creatures (c).

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage games
- game_state: board and status
- move / bulk_move: walk the player (explain your intent)
- wait: let time pass so balls, creatures and transporters move
- reload_level: restart the current level after dying
- change_level: skip forward or back through the pack
- move_history: what you have done so far
- list_levels: the level pack
- describe_cell: everything in one cell
- game_instructions: the full rules`),
	)

	c.registerTools()
	return c
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally starting on a given level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"level": map[string]any{
					"type":        "integer",
					"description": "Level number to start on (default 1)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board and status",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the player one cell, pushing whatever can be pushed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"direction": map[string]any{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to move",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of why you are making this move",
				},
				"reset": map[string]any{
					"type":        "boolean",
					"description": "Reload the level before moving",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in order; stops early when blocked, on death or when the level changes", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"moves": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{"up", "down", "left", "right"},
					},
					"description": "Moves to execute",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the plan behind these moves",
				},
				"reset": map[string]any{
					"type":        "boolean",
					"description": "Reload the level before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "wait",
		Description: "Let simulated time pass without moving. Balls and creatures step every 0.5s, transporters every 1s",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"seconds": map[string]any{
					"type":        "number",
					"description": "Seconds to wait (default 0.5)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleWait)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reload_level",
		Description: "Restart the current level from its file",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReload)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_level",
		Description: "Jump forward or back through the level pack",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"delta": map[string]any{
					"type":        "integer",
					"description": "Levels to move; 1 is next, -1 previous",
				},
			},
			Required: []string{"session_id", "delta"},
		},
	}, c.handleChangeLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "View past moves with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Moves per page (default 20, max 100)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List the levels of the pack",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "List every object in one cell. Coordinates start at 1,1 in the top-left corner",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"x":          map[string]any{"type": "integer", "description": "Column, 1-based"},
				"y":          map[string]any{"type": "integer", "description": "Row, 1-based"},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules and board legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func sessionPath(args map[string]any, suffix string) (string, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// intArg reads a JSON number argument. ok is false when it is absent.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]int{}
	if level, ok := intArg(arguments(request), "level"); ok {
		body["level"] = level
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatGameState(session.GameState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level %d/%d, Last used: %s)\n",
			s.ID, s.Level, s.LevelCount, s.LastAccessedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction, _ := args["direction"].(string)
	reset, _ := args["reset"].(bool)
	// intent is only there to make the caller think; nothing reads it.

	var result service.MoveResult
	body := map[string]any{"direction": direction, "reset": reset}
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/bulk-move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	movesRaw, _ := args["moves"].([]any)
	reset, _ := args["reset"].(bool)

	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}

	var result service.BulkMoveResult
	body := map[string]any{"moves": moves, "reset": reset}
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkMoveResult(&result)), nil
}

func (c *Client) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/advance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	seconds, ok := args["seconds"].(float64)
	if !ok || seconds <= 0 {
		seconds = 0.5
	}

	var result service.AdvanceResult
	body := map[string]int64{"ms": int64(seconds * 1000)}
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAdvanceResult(&result)), nil
}

func (c *Client) handleReload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleChangeLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/level")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	delta, _ := intArg(args, "delta")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, map[string]int{"delta": delta}, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                  `json:"count"`
		Levels []*levelstore.LevelInfo `json:"levels"`
	}
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Levels (%d):\n\n", response.Count)
	for _, l := range response.Levels {
		if l.Error != "" {
			fmt.Fprintf(&b, "%d. %s: unavailable (%s)\n", l.Number, l.Name, l.Error)
			continue
		}
		fmt.Fprintf(&b, "%d. %s: %dx%d, %d objects\n", l.Number, l.Name, l.Width, l.Height, l.Objects)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if state.World == nil {
		return mcp.NewToolResultError("state has no world"), nil
	}

	p := grid.Position{X: x, Y: y}
	dims := state.World.Dimensions
	if !dims.Contains(p) {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %dx%d (1-%d for x, 1-%d for y)",
			x, y, dims.Width, dims.Height, dims.Width, dims.Height)), nil
	}

	return mcp.NewToolResultText(describeCell(state.World, p)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Tile Puzzle - Complete Instructions

GOAL:
Reach the exit (E) of each level. Reaching the exit loads the next level;
the exit of the last level finishes the game.

COORDINATES:
Columns (x) and rows (y) start at 1 in the top-left corner. "up" is y-1.

BOARD LEGEND:
  @  player            E  exit
  #  red block (fixed) B  blue block (pushable, light)
  P  purple block (pushable, heavy)
  Y  yellow block (pushable, but nothing can be pushed into it)
  G  closed gate       g  open gate
  _  button            *  mine
  ~  water             =  raft
  o  bouncing ball     c  creature
  ^ > v <  transporter pointing that way
  +  grave  ,  splash  x  explosion (short lived, harmless)
  .  empty

PUSHING:
Moving into a pushable block shoves it one cell, and a whole row of blocks
moves together if the last one has room. Walls, gates, fixed blocks, yellow
blocks and the grid edge stop a push. You are heavy and can push anything
pushable.

WATER:
Stepping into water drowns you and the level restarts. Push a raft into
water first; the raft docks there and you can walk over it. Blocks pushed
into water without a raft sink and are gone; the water stays.

MINES:
Anything that moves onto a mine explodes with it. If that is you, the
level restarts.

BUTTONS AND GATES:
Gates open while every button has something standing on it and close
again as soon as one is released.

MOVERS:
Balls (o) fly straight and bounce back off obstacles. Creatures (c) follow
the wall on their right hand. Both step every 0.5s of game time and kill
you on contact. After a death by contact the board stays frozen with a
grave (+); use reload_level.

TRANSPORTERS:
Every second each transporter carries what stands on it one cell in its
direction.

TIME:
Time only passes when the server clock runs or when you call wait. Use wait
to let movers get out of your way.`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nCreated: %s\nLast used: %s\n\n%s",
		session.ID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Level %d/%d", state.Level, state.LevelCount)
	if state.PlayerPos != nil {
		fmt.Fprintf(&b, " | Position: (%d,%d)", state.PlayerPos.X, state.PlayerPos.Y)
	}
	fmt.Fprintf(&b, " | Moves: %d", state.TotalMoves)
	if state.World != nil {
		fmt.Fprintf(&b, " | Clock: %s", state.World.Clock)
	}
	b.WriteString("\n\n")

	b.WriteString(formatBoard(state.Board))

	if len(state.LocalView) > 0 {
		b.WriteString("\nAround you:\n")
		for i, cell := range state.LocalView {
			what := "empty"
			if len(cell.Objects) > 0 {
				what = strings.Join(cell.Objects, ", ")
			}
			status := "open"
			if cell.Blocked {
				status = "blocked"
			}
			fmt.Fprintf(&b, "  %-5s (%d,%d) %s - %s\n", grid.Directions[i], cell.X, cell.Y, what, status)
		}
	}

	switch {
	case state.Completed:
		b.WriteString("\n🎉 ALL LEVELS COMPLETE!")
	case state.GameOver:
		b.WriteString("\n💀 GAME OVER - use reload_level")
	}
	if state.Editor {
		b.WriteString("\n✏️ Editor mode (time paused)")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

// formatBoard numbers the columns and rows so coordinates can be read off.
func formatBoard(rows []string) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("    ")
	for x := 1; x <= len(rows[0]); x++ {
		b.WriteByte(byte('0' + x%10))
	}
	b.WriteByte('\n')
	for y, row := range rows {
		fmt.Fprintf(&b, "%3d %s\n", y+1, row)
	}
	return b.String()
}

func formatEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		if event.Message != "" {
			fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
		} else {
			fmt.Fprintf(b, "- %s\n", event.Type)
		}
	}
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move failed\n")
	}

	if s := result.Step; s != nil {
		b.WriteString(formatStep(*s))
	}
	if a := result.AttemptedTo; a != nil {
		b.WriteString(formatAttempt(a))
	}

	formatEvents(&b, result.Events)
	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatStep(s service.StepInfo) string {
	status := "✗"
	if s.Success {
		status = "✓"
	}
	line := fmt.Sprintf("Step %d: %s (%d,%d)", s.Idx, s.Dir, s.From.X, s.From.Y)
	if s.To != nil {
		line += fmt.Sprintf("→(%d,%d)", s.To.X, s.To.Y)
	}
	line += " " + status
	switch {
	case s.LevelCleared:
		line += " level cleared"
	case s.Reloaded:
		line += " died, level restarted"
	case s.Died:
		line += " died"
	}
	return line + "\n"
}

func formatAttempt(a *service.AttemptInfo) string {
	if !a.InBounds {
		return fmt.Sprintf("Blocked: (%d,%d) is outside the grid\n", a.X, a.Y)
	}
	what := "nothing"
	if len(a.Objects) > 0 {
		what = strings.Join(a.Objects, ", ")
	}
	return fmt.Sprintf("Blocked: attempted (%d,%d) holding %s\n", a.X, a.Y, what)
}

func formatBulkMoveResult(result *service.BulkMoveResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Executed %d/%d moves", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s\n", result.StoppedOnMove, result.StoppedReason)
	}
	if result.StartLevel != result.EndLevel {
		fmt.Fprintf(&b, "Level %d → %d\n", result.StartLevel, result.EndLevel)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			b.WriteString(formatStep(s))
		}
	}
	if a := result.AttemptedTo; a != nil {
		b.WriteString(formatAttempt(a))
	}

	if len(result.Events) > 0 {
		b.WriteString("\n")
		formatEvents(&b, result.Events)
	}

	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "\nPossible moves: %s\n", strings.Join(result.PossibleMoves, ","))
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatAdvanceResult(result *service.AdvanceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Waited %s (%d frames)", result.Elapsed, result.Frames)
	if result.Truncated {
		b.WriteString(", capped")
	}
	if !result.Changed {
		b.WriteString(", nothing moved")
	}
	b.WriteString("\n")
	formatEvents(&b, result.Events)
	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d moves)\n\n",
		history.Page, history.TotalPages, history.TotalMoves)
	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "#%d L%d %s: (%d,%d) → (%d,%d) %s\n",
			move.MoveNumber, move.Level, move.Action,
			move.FromPosition.X, move.FromPosition.Y,
			move.ToPosition.X, move.ToPosition.Y, status)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore on page %d\n", history.Page+1)
	}
	return b.String()
}

func describeCell(w *engine.World, p grid.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell at position (%d, %d):\n━━━━━━━━━━━━━━━━━━━━━━━━\n", p.X, p.Y)

	objects := w.ObjectsAt(p)
	if len(objects) == 0 {
		b.WriteString("Empty - the player can walk here\n")
		return b.String()
	}
	for _, o := range objects {
		fmt.Fprintf(&b, "%c %s", engine.Glyph(o), o.Name())
		if o.Direction != nil {
			fmt.Fprintf(&b, " facing %s", o.Facing())
		}
		if notes := traitNotes(o); notes != "" {
			b.WriteString(" - " + notes)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func traitNotes(o *engine.Object) string {
	var notes []string
	switch {
	case o.IsEffect():
		notes = append(notes, "harmless, disappears shortly")
	case o.Pushable:
		notes = append(notes, fmt.Sprintf("pushable (%s)", o.Weight))
	case o.Openable && o.Frame == 1:
		notes = append(notes, "open")
	case o.Massive:
		notes = append(notes, "solid")
	}
	if o.BlocksPushes {
		notes = append(notes, "stops pushes")
	}
	if o.Deadly {
		notes = append(notes, "deadly")
	}
	if o.Liquid {
		notes = append(notes, "drowns the player unless bridged by a raft")
	}
	if o.Explosive {
		notes = append(notes, "explodes on contact")
	}
	if o.Trigger {
		notes = append(notes, "opens gates while pressed")
	}
	if o.Exit {
		notes = append(notes, "level exit")
	}
	return strings.Join(notes, ", ")
}
