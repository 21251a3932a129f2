package engine

import (
	"strings"

	"github.com/wricardo/tilepuzzle/game/grid"
)

// RenderBoard draws the world as one string per row, using the glyph of the
// topmost object in each cell and '.' for empty cells.
func RenderBoard(w *World) []string {
	dims := w.Dimensions
	top := make([]*Object, dims.Width*dims.Height)
	for _, o := range w.Objects {
		if !dims.Contains(o.Position) {
			continue
		}
		i := (o.Position.Y-1)*dims.Width + (o.Position.X - 1)
		if top[i] == nil || layerOf(o) >= layerOf(top[i]) {
			top[i] = o
		}
	}

	rows := make([]string, dims.Height)
	var b strings.Builder
	for y := 0; y < dims.Height; y++ {
		b.Reset()
		for x := 0; x < dims.Width; x++ {
			if o := top[y*dims.Width+x]; o != nil {
				b.WriteRune(Glyph(o))
			} else {
				b.WriteByte('.')
			}
		}
		rows[y] = b.String()
	}
	return rows
}

// GenerateLocalView lists the four cells around the player. Cells outside the
// grid are reported as blocked.
func GenerateLocalView(w *World) []SurroundingCell {
	player := w.Player()
	if player == nil {
		return nil
	}

	view := make([]SurroundingCell, 0, len(grid.Directions))
	for _, d := range grid.Directions {
		p := player.Position.Add(d.Delta())
		cell := SurroundingCell{X: p.X, Y: p.Y, Objects: []string{}}
		if !w.Dimensions.Contains(p) {
			cell.Blocked = true
			view = append(view, cell)
			continue
		}
		for _, o := range w.ObjectsAt(p) {
			cell.Objects = append(cell.Objects, o.Name())
		}
		cell.Blocked = !canEnter(w, player, d)
		view = append(view, cell)
	}
	return view
}

// canEnter runs the push resolution against a copy of the world.
func canEnter(w *World, player *Object, d grid.Direction) bool {
	sim := w.Clone()
	p := sim.Object(player.ID)
	if p == nil {
		return false
	}
	return AttemptMove(p, d.Delta(), sim.Dimensions, sim.others(p, notEffect), true)
}
