// Package engine provides the grid simulation behind the puzzle game.
//
// A World holds the objects of one level. Every object carries a set of
// traits (massive, pushable, liquid, deadly and so on) taken from the catalog
// entry of its type, and the rules only ever look at traits, never at types.
//
// Each frame runs the same pipeline:
//
//	resolve intent -> movement tick -> transporter tick -> interaction rules -> prune volatiles
//
// AttemptMove is the single movement primitive. The player moves with pushing
// enabled; autonomous movers and transporters move without it. The interaction
// rules read the positions left by movement and queue their changes, which are
// applied together once every rule has run.
//
// GameEngine wraps a World with level loading from a LevelSource, move
// history, editor operations and the game-over and completion flags:
//
//	levels := engine.StaticLevels{text}
//	e, err := engine.NewEngine(&levels, 1)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	e.Move(grid.Right)
//	e.Advance(time.Second)
//	state := e.GetState()
package engine
