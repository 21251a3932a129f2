// Package scripting drives a session from a Lua script.
//
// A script defines one function:
//
//	function next_move(state)
//	  if state.game_over then return "reload" end
//	  if not state.around.right.blocked then return "right" end
//	  return "wait"
//	end
//
// state carries level, level_count, width, height, clock_ms, game_over,
// completed, total_moves, player {x, y}, board (rows of glyphs) and around
// (up/right/down/left cells with x, y, blocked and objects). objects_at(x, y)
// lists the object types in any cell and log(msg) writes to the server log.
//
// Returning a direction moves, "wait" advances time, "reload" restarts the
// level and nil or "stop" ends the run.
package scripting
