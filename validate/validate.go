// Command validate checks the level pack in a directory (default
// game/levelstore/levels). For every level listed by the pack it checks:
//   - The text parses without warnings
//   - Exactly one Player and at least one Exit
//   - Every placement lies inside the grid
//   - No two solid objects share a cell
//   - Connectivity: some exit is reachable from the player around fixed walls
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const defaultDir = "game/levelstore/levels"

// ValidationResult captures the outcome of validating a single level.
// Info holds the summary lines printed for valid levels.
type ValidationResult struct {
	Number int
	Name   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateLevel parses text and runs every structural check on it.
func validateLevel(number int, name, text string) ValidationResult {
	result := ValidationResult{
		Number: number,
		Name:   name,
		Valid:  true,
	}

	core, logs := observer.New(zapcore.WarnLevel)
	lvl := level.Parse(text, zap.New(core))
	for _, entry := range logs.All() {
		result.fail("Parse: %s %s", entry.Message, fieldSummary(entry.ContextMap()))
	}

	if lvl.Total() == 0 {
		result.fail("Level has no objects")
		return result
	}

	players := lvl.Count(level.Player)
	exits := lvl.Count(level.Exit)
	if players != 1 {
		result.fail("Must have exactly 1 Player, got %d", players)
	}
	if exits == 0 {
		result.fail("Must have at least 1 Exit")
	}

	dims := lvl.Dimensions
	for _, t := range lvl.Types() {
		for _, p := range lvl.Objects[t] {
			if !dims.Contains(p.Position) {
				result.fail("%s at (%d,%d) is outside the %dx%d grid", t, p.Position.X, p.Position.Y, dims.Width, dims.Height)
			}
		}
	}

	checkOverlaps(lvl, &result)

	if result.Valid {
		reach := validateConnectivity(lvl)
		if !reach.Valid {
			result.Valid = false
			result.Errors = append(result.Errors, reach.Errors...)
		} else {
			result.Info = append(result.Info, reach.Info...)
		}
	}

	if result.Valid {
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Grid: %dx%d", dims.Width, dims.Height),
			fmt.Sprintf("✓ Objects: %d", lvl.Total()),
			fmt.Sprintf("✓ Exits: %d", exits))
		if lvl.Count(level.Gate) > 0 && lvl.Count(level.Button) == 0 {
			result.Info = append(result.Info, "⚠ Gates without buttons never open")
		}
	}

	return result
}

// checkOverlaps reports cells holding more than one solid object, and a
// player standing inside one.
func checkOverlaps(lvl *level.Level, result *ValidationResult) {
	solids := map[grid.Position]level.ObjectType{}
	for _, t := range lvl.Types() {
		traits, err := engine.TraitsOf(t)
		if err != nil || !traits.Massive {
			continue
		}
		for _, p := range lvl.Objects[t] {
			if prev, ok := solids[p.Position]; ok {
				result.fail("%s and %s overlap at (%d,%d)", prev, t, p.Position.X, p.Position.Y)
				continue
			}
			solids[p.Position] = t
		}
	}
	for _, p := range lvl.Objects[level.Player] {
		if t, ok := solids[p.Position]; ok {
			result.fail("Player starts inside %s at (%d,%d)", t, p.Position.X, p.Position.Y)
		}
	}
}

// validateConnectivity flood-fills from the player over every cell that is
// not a fixed wall. Red blocks are fixed; gates are fixed when the level has
// no button to open them.
func validateConnectivity(lvl *level.Level) ValidationResult {
	result := ValidationResult{Valid: true}

	players := lvl.Objects[level.Player]
	exits := lvl.Objects[level.Exit]
	if len(players) == 0 || len(exits) == 0 {
		result.fail("Cannot validate connectivity without a player and an exit")
		return result
	}

	walls := map[grid.Position]bool{}
	for _, p := range lvl.Objects[level.RedBlock] {
		walls[p.Position] = true
	}
	if lvl.Count(level.Button) == 0 {
		for _, p := range lvl.Objects[level.Gate] {
			walls[p.Position] = true
		}
	}

	dims := lvl.Dimensions
	start := players[0].Position
	visited := map[grid.Position]bool{start: true}
	queue := []grid.Position{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, d := range grid.Directions {
			next := current.Add(d.Delta())
			if visited[next] || walls[next] || !dims.Contains(next) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	reachable := 0
	for _, e := range exits {
		if visited[e.Position] {
			reachable++
		}
	}
	if reachable == 0 {
		result.fail("Connectivity failure: no exit reachable from the player at (%d,%d)", start.X, start.Y)
		for _, e := range exits {
			result.Errors = append(result.Errors, fmt.Sprintf("Unreachable: Exit at (%d,%d)", e.Position.X, e.Position.Y))
		}
		return result
	}
	result.Info = append(result.Info, fmt.Sprintf("✓ Connectivity: %d/%d exits reachable from the player", reachable, len(exits)))
	return result
}

func fieldSummary(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, key := range []string{"line", "section", "key", "value", "location"} {
		if v, ok := fields[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// validatePack validates every level of store in pack order.
func validatePack(ctx context.Context, store levelstore.Store) ([]ValidationResult, error) {
	infos, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]ValidationResult, 0, len(infos))
	for _, info := range infos {
		text, err := store.Read(ctx, info.Number)
		if err != nil {
			results = append(results, ValidationResult{
				Number: info.Number,
				Name:   info.Name,
				Errors: []string{fmt.Sprintf("Failed to read level: %v", err)},
			})
			continue
		}
		results = append(results, validateLevel(info.Number, info.Name, text))
	}
	return results, nil
}

// main validates the pack in the directory given as the first argument and
// exits with non-zero status if any level is invalid.
func main() {
	dir := defaultDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	store, err := levelstore.NewDir(dir, nil)
	if err != nil {
		fmt.Printf("Error opening levels: %v\n", err)
		os.Exit(1)
	}
	results, err := validatePack(context.Background(), store)
	if err != nil {
		fmt.Printf("Error listing levels: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %d. %s\n", strings.Repeat("=", 20), result.Number, result.Name)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Info {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All levels are valid!")
	} else {
		fmt.Println("❌ Some levels have errors")
		os.Exit(1)
	}
}
