// Package tui is the terminal client: it renders a session with tcell, maps
// keys to moves and editor operations, and plays short beep cues for
// splashes, explosions, deaths and exits.
//
// The client talks to a Service, which the in-process game service
// satisfies, and advances the session clock itself when Options.Frame is
// set.
package tui
