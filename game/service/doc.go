// Package service is the operation layer between the transports (REST,
// WebSocket, MCP, terminal) and the game engine.
//
// GameService exposes sessions, moves, simulated time, level navigation, the
// level editor and the level pack. It depends on two narrow interfaces:
// SessionManager, implemented by the session package, and LevelManager,
// implemented by config.Manager.
//
// Every call that changes a session persists it afterwards, except
// AdvanceAll, which drives the server's real-time clock and runs several
// times a second. States returned to callers are deep copies, so they can be
// encoded after the service lock is released.
//
// Usage:
//
//	svc := service.NewGameService(sessions, levels, log)
//	info, err := svc.CreateSession(ctx, 1)
//	if err != nil {
//		return err
//	}
//	result, err := svc.BulkMove(ctx, info.ID, []string{"right", "right"}, false)
//
// Errors wrap ErrSessionNotFound, ErrInvalidInput or the engine sentinels
// (engine.ErrLevelNotFound, engine.ErrEditorInactive, engine.ErrSaveRefused,
// engine.ErrOutOfBounds) so transports can map them with errors.Is.
package service
