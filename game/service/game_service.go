package service

import (
	"context"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/levelstore"
)

// GameService defines the interface for game operations
type GameService interface {
	// Session management
	CreateSession(ctx context.Context, level int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Advance(ctx context.Context, sessionID string, d time.Duration) (*AdvanceResult, error)
	AdvanceAll(ctx context.Context, d time.Duration) ([]*AdvanceResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	ChangeLevel(ctx context.Context, sessionID string, delta int) (*engine.GameState, error)
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Editor
	ToggleEditor(ctx context.Context, sessionID string) (*EditorResult, error)
	PlaceObject(ctx context.Context, sessionID, objectType string, x, y int, direction string) (*EditorResult, error)
	EraseCell(ctx context.Context, sessionID string, x, y int) (*EditorResult, error)
	ResizeGrid(ctx context.Context, sessionID string, dw, dh int) (*EditorResult, error)
	SaveLevel(ctx context.Context, sessionID string) (*EditorResult, error)

	// Levels
	ListLevels(ctx context.Context) ([]*levelstore.LevelInfo, error)
	GetLevelText(ctx context.Context, number int) (string, error)
	SaveLevelText(ctx context.Context, number int, text string) (*levelstore.LevelInfo, error)
}
