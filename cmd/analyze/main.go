// Command analyze prints quick, human-readable statistics about the levels of
// a pack: dimensions, object counts by type, how crowded the grid is, and
// whether the player can walk to an exit without touching anything.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/levelstore"
)

// Analysis summarizes one level.
type Analysis struct {
	Number  int
	Name    string
	Width   int
	Height  int
	Objects int
	// Occupied counts cells holding at least one object.
	Occupied int
	Counts   map[level.ObjectType]int

	Pushables int
	Hazards   int
	Movers    int

	// DirectRoute is the length of the shortest walk from the player to an
	// exit over cells holding nothing solid or hazardous, -1 when there is
	// none.
	DirectRoute int
}

// Density is the share of cells holding at least one object.
func (a *Analysis) Density() float64 {
	cells := a.Width * a.Height
	if cells == 0 {
		return 0
	}
	return float64(a.Occupied) / float64(cells)
}

func main() {
	var store levelstore.Store = levelstore.NewEmbedded()
	if len(os.Args) > 1 {
		dir, err := levelstore.NewDir(os.Args[1], nil)
		if err != nil {
			fmt.Printf("Error opening levels: %v\n", err)
			os.Exit(1)
		}
		store = dir
	}

	if err := analyzePack(context.Background(), store, os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func analyzePack(ctx context.Context, store levelstore.Store, w io.Writer) error {
	infos, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(w, "\n=== Level %d: %s ===\n", info.Number, info.Name)
		text, err := store.Read(ctx, info.Number)
		if err != nil {
			fmt.Fprintf(w, "Error reading level: %v\n", err)
			continue
		}
		a := analyzeLevel(level.Parse(text, nil))
		a.Number, a.Name = info.Number, info.Name
		printAnalysis(w, a)
	}
	return nil
}

func analyzeLevel(lvl *level.Level) *Analysis {
	a := &Analysis{
		Width:       lvl.Dimensions.Width,
		Height:      lvl.Dimensions.Height,
		Objects:     lvl.Total(),
		Counts:      map[level.ObjectType]int{},
		DirectRoute: -1,
	}

	blocked := map[grid.Position]bool{}
	occupied := map[grid.Position]bool{}
	for _, t := range lvl.Types() {
		traits, err := engine.TraitsOf(t)
		if err != nil {
			continue
		}
		n := lvl.Count(t)
		a.Counts[t] = n
		if traits.Pushable {
			a.Pushables += n
		}
		if traits.Deadly || traits.Explosive || traits.Liquid {
			a.Hazards += n
		}
		if traits.Movable != "" {
			a.Movers += n
		}
		for _, p := range lvl.Objects[t] {
			occupied[p.Position] = true
			if traits.Massive || traits.Explosive || traits.Liquid {
				blocked[p.Position] = true
			}
		}
	}

	players := lvl.Objects[level.Player]
	if len(players) > 0 {
		exits := map[grid.Position]bool{}
		for _, e := range lvl.Objects[level.Exit] {
			exits[e.Position] = true
		}
		a.DirectRoute = shortestRoute(lvl.Dimensions, players[0].Position, exits, blocked)
	}

	a.Occupied = len(occupied)
	return a
}

// shortestRoute is a breadth-first search from start to the nearest goal.
func shortestRoute(dims grid.Dimensions, start grid.Position, goals, blocked map[grid.Position]bool) int {
	if len(goals) == 0 {
		return -1
	}
	dist := map[grid.Position]int{start: 0}
	queue := []grid.Position{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if goals[current] {
			return dist[current]
		}
		for _, d := range grid.Directions {
			next := current.Add(d.Delta())
			if _, seen := dist[next]; seen || blocked[next] || !dims.Contains(next) {
				continue
			}
			dist[next] = dist[current] + 1
			queue = append(queue, next)
		}
	}
	return -1
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Objects: %d (%.0f%% of cells occupied)\n", a.Objects, a.Density()*100)
	for _, t := range level.ObjectTypes {
		if n := a.Counts[t]; n > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", t, n)
		}
	}
	fmt.Fprintf(w, "Pushables: %d  Hazards: %d  Movers: %d\n", a.Pushables, a.Hazards, a.Movers)

	if a.DirectRoute >= 0 {
		fmt.Fprintf(w, "⚠️  Exit reachable in %d moves without touching anything\n", a.DirectRoute)
	} else {
		fmt.Fprintf(w, "✅ No direct route: blocks, gates, mines or water stand in the way\n")
	}
}
