package engine

import (
	"slices"

	"github.com/wricardo/tilepuzzle/game/grid"
)

const (
	// MaxBulkMoves caps how many moves one bulk request may carry.
	MaxBulkMoves = 50
	// MaxAdvanceFrames caps how many frames one advance request may simulate.
	MaxAdvanceFrames = 600
	// WebSocketBufferSize is the per-client outbound queue length.
	WebSocketBufferSize = 256
)

// EventType classifies something that happened during a step.
type EventType string

const (
	EventPlayerMoved      EventType = "player_moved"
	EventPlayerBlocked    EventType = "player_blocked"
	EventMoverMoved       EventType = "mover_moved"
	EventConveyed         EventType = "conveyed"
	EventTransporterStuck EventType = "transporter_stuck"
	EventPlayerKilled     EventType = "player_killed"
	EventExploded         EventType = "exploded"
	EventSank             EventType = "sank"
	EventDocked           EventType = "docked"
	EventGateOpened       EventType = "gate_opened"
	EventGateClosed       EventType = "gate_closed"
	EventLevelReloaded    EventType = "level_reloaded"
	EventLevelComplete    EventType = "level_complete"
	EventLevelLoaded      EventType = "level_loaded"
	EventGameComplete     EventType = "game_complete"
)

// Event is one observable change produced by the simulation.
type Event struct {
	Type     EventType     `json:"type"`
	ObjectID ObjectID      `json:"object_id,omitempty"`
	Object   string        `json:"object,omitempty"`
	Position grid.Position `json:"position"`
	Message  string        `json:"message,omitempty"`
}

// SurroundingCell lists what occupies a cell next to the player.
type SurroundingCell struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Objects []string `json:"objects"`
	Blocked bool     `json:"blocked,omitempty"`
}

// GameState represents the complete game state
type GameState struct {
	Level      int    `json:"level"`
	LevelCount int    `json:"level_count"`
	World      *World `json:"world"`
	Editor     bool   `json:"editor"`
	Message    string `json:"message"`
	GameOver   bool   `json:"game_over"`
	Completed  bool   `json:"completed"`

	PlayerPos *grid.Position `json:"player_pos,omitempty"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reload. MoveHistory
	// stays cumulative across reloads and level changes.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	// Computed views, refreshed after every operation.
	Board     []string          `json:"board,omitempty"`
	LocalView []SurroundingCell `json:"local_view,omitempty"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action       string        `json:"action"`
	FromPosition grid.Position `json:"from_position"`
	ToPosition   grid.Position `json:"to_position"`
	Level        int           `json:"level"`
	Timestamp    int64         `json:"timestamp"`
	Success      bool          `json:"success"`
	MoveNumber   int           `json:"move_number"`
}

// Clone returns a deep copy that stays valid while the engine keeps running.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s
	if s.World != nil {
		c.World = s.World.Clone()
	}
	if s.PlayerPos != nil {
		pos := *s.PlayerPos
		c.PlayerPos = &pos
	}
	c.MoveHistory = slices.Clone(s.MoveHistory)
	c.CurrentMoves = slices.Clone(s.CurrentMoves)
	c.Board = slices.Clone(s.Board)
	c.LocalView = make([]SurroundingCell, len(s.LocalView))
	for i, cell := range s.LocalView {
		cell.Objects = slices.Clone(cell.Objects)
		c.LocalView[i] = cell
	}
	return &c
}
