package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/levelstore"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Session represents a game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// SessionManager handles session lifecycle
type SessionManager interface {
	Create(id string, levelNumber int) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager serves the level pack to engines and lists it for clients
type LevelManager interface {
	engine.LevelSource
	ListLevels(ctx context.Context) ([]*levelstore.LevelInfo, error)
}

// SessionInfo contains session metadata
type SessionInfo struct {
	ID             string            `json:"id"`
	Level          int               `json:"level"`
	LevelCount     int               `json:"level_count"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// GameEvent represents something that happened during an operation
type GameEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	ObjectID  engine.ObjectID `json:"object_id,omitempty"`
	Object    string          `json:"object,omitempty"`
	Position  *grid.Position  `json:"position,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success     bool              `json:"success"`
	GameState   *engine.GameState `json:"game_state"`
	Message     string            `json:"message"`
	Events      []GameEvent       `json:"events"`
	Step        *StepInfo         `json:"step,omitempty"`
	AttemptedTo *AttemptInfo      `json:"attempted_to,omitempty"`
}

// StepInfo is a compact record of one executed move
type StepInfo struct {
	Idx          int            `json:"idx"`
	Dir          string         `json:"dir"`
	From         grid.Position  `json:"from"`
	To           *grid.Position `json:"to,omitempty"`
	Success      bool           `json:"success"`
	LevelBefore  int            `json:"level_before"`
	LevelAfter   int            `json:"level_after"`
	Died         bool           `json:"died,omitempty"`
	Reloaded     bool           `json:"reloaded,omitempty"`
	LevelCleared bool           `json:"level_cleared,omitempty"`
}

// AttemptInfo describes the cell a failed move tried to enter
type AttemptInfo struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	InBounds bool     `json:"in_bounds"`
	Objects  []string `json:"objects,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	Success        bool              `json:"success"`
	RequestedMoves int               `json:"requested_moves"`
	MovesExecuted  int               `json:"moves_executed"`
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"`
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`
	AttemptedTo    *AttemptInfo      `json:"attempted_to,omitempty"`
	Steps          []StepInfo        `json:"steps"`
	Events         []GameEvent       `json:"events"`
	StartPos       *grid.Position    `json:"start_pos,omitempty"`
	EndPos         *grid.Position    `json:"end_pos,omitempty"`
	StartLevel     int               `json:"start_level"`
	EndLevel       int               `json:"end_level"`
	GameOver       bool              `json:"game_over"`
	Completed      bool              `json:"completed"`
	Message        string            `json:"message"`
	PossibleMoves  []string          `json:"possible_moves"`
	GameState      *engine.GameState `json:"game_state"`
}

// AdvanceResult reports a stretch of simulated time
type AdvanceResult struct {
	SessionID string            `json:"session_id"`
	Frames    int               `json:"frames"`
	Elapsed   time.Duration     `json:"elapsed"`
	Truncated bool              `json:"truncated,omitempty"`
	Changed   bool              `json:"changed"`
	Events    []GameEvent       `json:"events"`
	GameState *engine.GameState `json:"game_state"`
}

// EditorResult is returned by every editor operation
type EditorResult struct {
	Editor     bool              `json:"editor"`
	Object     *engine.Object    `json:"object,omitempty"`
	Erased     int               `json:"erased,omitempty"`
	Dimensions grid.Dimensions   `json:"dimensions"`
	Text       string            `json:"text,omitempty"`
	GameState  *engine.GameState `json:"game_state"`
}

// HistoryOptions for pagination
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}
