// Package mcp exposes the tile puzzle to AI agents over the Model Context
// Protocol.
//
// The Client owns an MCP server whose tools are thin proxies over the REST
// API, so an agent and a browser watching the same session always see the
// same world.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: numbered board, position and surroundings
//   - move, bulk_move: walk the player (with an optional reset first)
//   - wait: advance simulated time
//   - reload_level, change_level
//   - move_history: paginated history
//   - list_levels: the level pack
//   - describe_cell: objects and traits in one cell
//   - game_instructions: rules and board legend
//
// Transport Modes:
//   - Stdio: main wires GetMCPServer into server.ServeStdio
//   - HTTP: main forwards POST /mcp bodies to HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//	server.ServeStdio(client.GetMCPServer())
package mcp
