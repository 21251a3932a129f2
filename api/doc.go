// Package api provides the HTTP REST API for the tile puzzle server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, body {"level": n} (optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session and its saved copy
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/move - {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["up", "left"], "reset": false}
//   - POST /api/sessions/{id}/advance - {"duration": "1s"} or {"ms": 1000}
//   - POST /api/sessions/{id}/reset - Reload the current level
//   - POST /api/sessions/{id}/level - {"delta": 1} to move through the pack
//   - GET /api/sessions/{id}/history - Move history (?page&limit&order)
//
// Editor:
//   - POST /api/sessions/{id}/editor/toggle
//   - POST /api/sessions/{id}/editor/place - {"type": "Mine", "x": 2, "y": 3, "direction": "left"}
//   - POST /api/sessions/{id}/editor/erase - {"x": 2, "y": 3}
//   - POST /api/sessions/{id}/editor/resize - {"width_delta": 1, "height_delta": 0}
//   - POST /api/sessions/{id}/editor/save - Write the world back to the level store
//
// Level Pack:
//   - GET /api/levels - Summary of every level
//   - GET /api/levels/{n} - Level file (JSON, or raw with Accept: text/plain)
//   - PUT /api/levels/{n} - Replace a level file (JSON {"text": ...} or raw body)
//
// Misc:
//   - GET /api/schema/state - JSON schema of the game state document
//   - GET /api/health
//   - GET /ws?session={id} - WebSocket upgrade for state pushes
//
// Every mutating call pushes the new state to the session's websocket
// viewers.
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions and levels
// map to 404, bad input to 400, editor conflicts and refused saves to 409,
// everything else to 500.
package api
