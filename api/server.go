package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/invopop/jsonschema"
	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"github.com/wricardo/tilepuzzle/game/service"
	"github.com/wricardo/tilepuzzle/transport/websocket"
	"go.uber.org/zap"
)

// maxLevelSize bounds PUT /levels/{n} bodies.
const maxLevelSize = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     *zap.Logger
	schema  *jsonschema.Schema
}

// NewServer creates a new API server. hub may be nil when nobody watches.
func NewServer(gameService service.GameService, hub *websocket.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     log.Named("api"),
		schema:  stateSchema(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/level", s.handleChangeLevel).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Editor
	api.HandleFunc("/sessions/{id}/editor/toggle", s.handleToggleEditor).Methods("POST")
	api.HandleFunc("/sessions/{id}/editor/place", s.handlePlaceObject).Methods("POST")
	api.HandleFunc("/sessions/{id}/editor/erase", s.handleEraseCell).Methods("POST")
	api.HandleFunc("/sessions/{id}/editor/resize", s.handleResize).Methods("POST")
	api.HandleFunc("/sessions/{id}/editor/save", s.handleSaveLevel).Methods("POST")

	// Level pack
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels/{n:[0-9]+}", s.handleGetLevel).Methods("GET")
	api.HandleFunc("/levels/{n:[0-9]+}", s.handlePutLevel).Methods("PUT")

	api.HandleFunc("/schema/state", s.handleStateSchema).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors onto HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, engine.ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrUnknownObjectType):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrEditorInactive),
		errors.Is(err, engine.ErrSaveRefused),
		errors.Is(err, levelstore.ErrReadOnly):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func readLimited(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("missing request body")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("body larger than %d bytes", limit)
	}
	return body, nil
}

func (s *Server) broadcast(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level int `json:"level,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.Level)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.log.Info("session created", zap.String("session", session.ID), zap.Int("level", session.Level))
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Direction string `json:"direction"`
		Reset     bool   `json:"reset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, req.Direction, req.Reset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.broadcast(sessionID, result.GameState)

	if step := result.Step; step != nil {
		fields := []zap.Field{
			zap.String("session", sessionID),
			zap.String("dir", step.Dir),
			zap.Int("from_x", step.From.X), zap.Int("from_y", step.From.Y),
			zap.Bool("ok", step.Success),
		}
		if a := result.AttemptedTo; a != nil {
			fields = append(fields, zap.Int("attempt_x", a.X), zap.Int("attempt_y", a.Y), zap.Strings("blocked_by", a.Objects))
		}
		s.log.Debug("move", fields...)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Moves []string `json:"moves"`
		Reset bool     `json:"reset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.BulkMove(r.Context(), sessionID, req.Moves, req.Reset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.broadcast(sessionID, result.GameState)

	s.log.Debug("bulk move",
		zap.String("session", sessionID),
		zap.Int("executed", result.MovesExecuted),
		zap.Int("requested", result.RequestedMoves),
		zap.String("stop", result.StopReasonCode),
		zap.Int("end_level", result.EndLevel))

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Duration     string `json:"duration,omitempty"` // Go duration, e.g. "1.5s"
		Milliseconds int64  `json:"ms,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d := time.Duration(req.Milliseconds) * time.Millisecond
	if req.Duration != "" {
		parsed, err := time.ParseDuration(req.Duration)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid duration %q", req.Duration))
			return
		}
		d = parsed
	}

	result, err := s.service.Advance(r.Context(), sessionID, d)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if result.Changed {
		s.broadcast(sessionID, result.GameState)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.broadcast(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Level reloaded",
		"state":   state,
	})
}

func (s *Server) handleChangeLevel(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.ChangeLevel(r.Context(), sessionID, req.Delta)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.broadcast(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Level %d of %d", state.Level, state.LevelCount),
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), sessionID, opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Editor Handlers

type cellRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (c cellRequest) valid() bool {
	return c.X != nil && c.Y != nil
}

func (s *Server) respondEditor(w http.ResponseWriter, r *http.Request, sessionID string, result *service.EditorResult, err error) {
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.broadcast(sessionID, result.GameState)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleToggleEditor(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.ToggleEditor(r.Context(), sessionID)
	s.respondEditor(w, r, sessionID, result, err)
}

func (s *Server) handlePlaceObject(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		cellRequest
		Type      string `json:"type"`
		Direction string `json:"direction,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() || req.Type == "" {
		respondError(w, http.StatusBadRequest, "type, x and y are required")
		return
	}

	result, err := s.service.PlaceObject(r.Context(), sessionID, req.Type, *req.X, *req.Y, req.Direction)
	s.respondEditor(w, r, sessionID, result, err)
}

func (s *Server) handleEraseCell(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req cellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		respondError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	result, err := s.service.EraseCell(r.Context(), sessionID, *req.X, *req.Y)
	s.respondEditor(w, r, sessionID, result, err)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Width  int `json:"width_delta"`
		Height int `json:"height_delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.ResizeGrid(r.Context(), sessionID, req.Width, req.Height)
	s.respondEditor(w, r, sessionID, result, err)
}

func (s *Server) handleSaveLevel(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.SaveLevel(r.Context(), sessionID)
	if err == nil {
		s.log.Info("level saved from editor", zap.String("session", sessionID), zap.Int("level", result.GameState.Level))
	}
	s.respondEditor(w, r, sessionID, result, err)
}

// Level Handlers

func levelNumber(r *http.Request) int {
	n, _ := strconv.Atoi(mux.Vars(r)["n"])
	return n
}

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(levels),
		"levels": levels,
	})
}

// handleGetLevel returns the level file. Clients asking for text/plain get
// the raw file, everyone else a JSON envelope.
func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	n := levelNumber(r)
	text, err := s.service.GetLevelText(r.Context(), n)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"number": n,
		"text":   text,
	})
}

// handlePutLevel accepts either a JSON {"text": ...} body or the raw file.
func (s *Server) handlePutLevel(w http.ResponseWriter, r *http.Request) {
	n := levelNumber(r)

	body, err := readLimited(r, maxLevelSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		text = req.Text
	}
	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "level text is empty")
		return
	}

	info, err := s.service.SaveLevelText(r.Context(), n, text)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.log.Info("level replaced", zap.Int("level", n), zap.Int("objects", info.Objects))
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleStateSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.schema)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket updates disabled", http.StatusServiceUnavailable)
		return
	}

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, session.ID, session.GameState)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// stateSchema describes the state document returned by /state and pushed
// over the websocket.
func stateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(engine.GameState))
	schema.Title = "Tile puzzle game state"
	schema.Description = "Snapshot of one session: level, world objects, board view and move history"
	return schema
}
