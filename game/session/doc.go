// Package session keeps game sessions for the server.
//
// Manager holds sessions in memory keyed by a case-insensitive ID (4 hex
// characters when generated). Each session owns its own GameEngine; all
// engines share one level source.
//
// With a SessionPersistence attached, sessions are written on creation and
// whenever the service saves them, and sessions missing from memory are
// loaded back on demand. FilePersistence writes one JSON file per session
// holding the full engine state, world included, so a restored session
// continues exactly where it stopped.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", levels, log)
//	if err != nil {
//		return err
//	}
//	manager := session.NewManagerWithPersistence(levels, persistence, log)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		return err
//	}
//	sess, err := manager.Create("", 1)
//
// CleanupExpiredSessions drops idle sessions from memory; their files stay on
// disk and are reloaded the next time the session is requested.
package session
