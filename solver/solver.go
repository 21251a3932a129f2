package solver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"go.uber.org/zap"
)

var (
	// ErrNoSolution means every reachable state was explored without
	// reaching an exit.
	ErrNoSolution = errors.New("no solution")
	// ErrSearchLimit means the search gave up before exploring every state.
	ErrSearchLimit = errors.New("search limit reached")
)

const (
	DefaultMaxDepth  = 200
	DefaultMaxStates = 200_000
)

// Options bounds a search.
type Options struct {
	// MaxDepth is the longest move sequence tried.
	MaxDepth int
	// MaxStates caps the number of distinct worlds kept in memory.
	MaxStates int
	Log       *zap.Logger
}

// Solution is the shortest move sequence that clears a level.
type Solution struct {
	Level    int              `json:"level"`
	Moves    []grid.Direction `json:"moves"`
	Explored int              `json:"explored"`
}

// Strings returns the moves as direction names, ready for a bulk move.
func (s *Solution) Strings() []string {
	out := make([]string, len(s.Moves))
	for i, d := range s.Moves {
		out[i] = d.String()
	}
	return out
}

func (s *Solution) String() string {
	return strings.Join(s.Strings(), ",")
}

type node struct {
	world *engine.World
	path  []grid.Direction
}

// Solve runs a breadth-first search over player moves on level number and
// returns the shortest sequence that reaches an exit. Time never passes
// during the search, so movers and transporters stay where the level puts
// them.
func Solve(ctx context.Context, levels engine.LevelSource, number int, opts Options) (*Solution, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxStates <= 0 {
		opts.MaxStates = DefaultMaxStates
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("solver").With(zap.Int("level", number))

	// the scratch engine logs every simulated death; keep it quiet
	scratch, err := engine.NewEngine(levels, number)
	if err != nil {
		return nil, err
	}

	start := scratch.GetState().World.Clone()
	seen := map[string]bool{stateKey(start): true}
	queue := []node{{world: start}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := queue[0]
		queue = queue[1:]
		if len(n.path) >= opts.MaxDepth {
			continue
		}

		for _, d := range grid.Directions {
			next, result, err := try(scratch, number, n.world, d)
			if err != nil {
				return nil, err
			}
			switch result {
			case blocked, died:
				continue
			case cleared:
				sol := &Solution{Level: number, Moves: appendMove(n.path, d), Explored: len(seen)}
				log.Debug("solved", zap.Int("moves", len(sol.Moves)), zap.Int("explored", sol.Explored))
				return sol, nil
			}

			key := stateKey(next)
			if seen[key] {
				continue
			}
			if len(seen) >= opts.MaxStates {
				return nil, fmt.Errorf("%w: %d states", ErrSearchLimit, len(seen))
			}
			seen[key] = true
			queue = append(queue, node{world: next, path: appendMove(n.path, d)})
		}
	}

	log.Debug("no solution", zap.Int("explored", len(seen)))
	return nil, fmt.Errorf("%w for level %d within %d moves", ErrNoSolution, number, opts.MaxDepth)
}

type result int

const (
	moved result = iota
	blocked
	died
	cleared
)

// try applies one move to a copy of w.
func try(e *engine.GameEngine, number int, w *engine.World, d grid.Direction) (*engine.World, result, error) {
	if err := e.SetState(&engine.GameState{Level: number, World: w.Clone()}); err != nil {
		return nil, blocked, err
	}
	ok := e.Move(d)
	for _, ev := range e.DrainEvents() {
		switch ev.Type {
		case engine.EventLevelComplete:
			return nil, cleared, nil
		case engine.EventLevelReloaded:
			return nil, died, nil
		}
	}
	if e.IsGameOver() {
		return nil, died, nil
	}
	if !ok {
		return nil, blocked, nil
	}
	return e.GetState().World, moved, nil
}

func appendMove(path []grid.Direction, d grid.Direction) []grid.Direction {
	return append(slices.Clip(path), d)
}

// stateKey identifies a world by what is where. Object IDs and the clock are
// left out so equivalent positions reached by different paths collapse.
func stateKey(w *engine.World) string {
	entries := make([]string, 0, len(w.Objects))
	for _, o := range w.Objects {
		name := string(o.Type)
		if o.IsEffect() {
			name = string(o.Effect)
		}
		entries = append(entries, fmt.Sprintf("%s@%d,%d/%s/%d", name, o.Position.X, o.Position.Y, o.Facing(), o.Frame))
	}
	slices.Sort(entries)
	return strings.Join(entries, ";")
}
