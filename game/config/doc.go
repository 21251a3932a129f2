// Package config serves level packs to game engines.
//
// Manager wraps a levelstore.Store and implements engine.LevelSource. Level
// texts are re-read on every load, so editing a level file and reloading the
// level in a running session picks up the change. When a read fails the
// manager falls back to the last copy it read successfully and logs a
// warning.
//
// Usage:
//
//	store, err := levelstore.NewDir("levels", log)
//	if err != nil {
//		return err
//	}
//	levels, err := config.NewManager(ctx, store, log)
//	if err != nil {
//		return err
//	}
//	eng, err := engine.NewEngine(levels, 1)
//
// An empty store is served as a single built-in level so a fresh level
// directory can still be opened in the editor and saved into.
package config
