// Package websocket pushes session state to browser and terminal viewers.
//
// A central Hub keeps the connected clients per session. Each connection has
// a read pump that only watches for the peer going away and a write pump that
// drains the client's queue and sends pings. Viewers never send commands; all
// input goes through the REST API or MCP tools.
//
// Message Protocol:
//
// Every frame is a JSON Message:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//
// The first frame after connecting carries the current state. After that a
// frame is sent whenever a REST call or the realtime clock changes the world.
//
// Usage:
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//
//	// inside an http handler
//	hub.ServeWS(w, r, sessionID, state)
//
// Slow clients whose queue fills up are disconnected instead of blocking the
// broadcaster.
package websocket
