package level

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wricardo/tilepuzzle/game/grid"
)

// Format renders l in the text level format. Placements of each type are
// sorted by (direction, position) with undirected placements first, and a
// Direction line is written only when the facing changes from the previous
// one, starting from Up.
func Format(l *Level) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[General]\nWidth=%d\nHeight=%d\n", l.Dimensions.Width, l.Dimensions.Height)

	for _, t := range l.Types() {
		fmt.Fprintf(&b, "\n[%s]\n", t)

		placements := slices.Clone(l.Objects[t])
		slices.SortFunc(placements, comparePlacements)

		current := grid.Up
		for _, p := range placements {
			if p.Direction != nil && *p.Direction != current {
				current = *p.Direction
				fmt.Fprintf(&b, "Direction=%s\n", current)
			}
			fmt.Fprintf(&b, "Position=%d,%d\n", p.Position.X, p.Position.Y)
		}
	}

	return b.String()
}

func comparePlacements(a, b Placement) int {
	if c := compareDirection(a.Direction, b.Direction); c != 0 {
		return c
	}
	if a.Position.X != b.Position.X {
		return a.Position.X - b.Position.X
	}
	return a.Position.Y - b.Position.Y
}

// compareDirection orders nil before any direction.
func compareDirection(a, b *grid.Direction) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return int(*a) - int(*b)
	}
}
