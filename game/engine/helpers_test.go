package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"go.uber.org/zap/zaptest"
)

// levelText builds a level file from sections such as "[Player]\nPosition=1,1".
func levelText(width, height int, sections ...string) string {
	return fmt.Sprintf("[General]\nWidth=%d\nHeight=%d\n\n", width, height) + strings.Join(sections, "\n") + "\n"
}

func worldFrom(t *testing.T, text string) *World {
	t.Helper()
	log := zaptest.NewLogger(t)
	return NewWorld(level.Parse(text, log), DefaultTiming(), log)
}

func engineFrom(t *testing.T, levels ...string) *GameEngine {
	t.Helper()
	src := StaticLevels(levels)
	e, err := NewEngine(&src, 1, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func first(t *testing.T, w *World, typ level.ObjectType) *Object {
	t.Helper()
	for _, o := range w.Objects {
		if o.Type == typ {
			return o
		}
	}
	t.Fatalf("no %s in world", typ)
	return nil
}

func all(w *World, typ level.ObjectType) []*Object {
	var out []*Object
	for _, o := range w.Objects {
		if o.Type == typ {
			out = append(out, o)
		}
	}
	return out
}

func effects(w *World, e Effect) []*Object {
	var out []*Object
	for _, o := range w.Objects {
		if o.Effect == e {
			out = append(out, o)
		}
	}
	return out
}

func pos(x, y int) grid.Position {
	return grid.Position{X: x, Y: y}
}

func movePlayer(w *World, d grid.Direction) bool {
	p := w.Player()
	return AttemptMove(p, d.Delta(), w.Dimensions, w.others(p, notEffect), true)
}
