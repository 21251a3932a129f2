package engine

import (
	"slices"

	"github.com/wricardo/tilepuzzle/game/grid"
)

// AttemptMove tries to move mover one cell along delta, pushing pushable
// objects out of the way when canPush is set. Candidates are the other objects
// that may block or be pushed. On failure nothing is moved.
func AttemptMove(mover *Object, delta grid.Delta, dims grid.Dimensions, candidates []*Object, canPush bool) bool {
	from := mover.Position
	dest := from.Add(delta)
	if !dims.Contains(dest) {
		return false
	}

	ray := alongRay(candidates, mover, from, delta)
	slices.SortStableFunc(ray, func(a, b *Object) int {
		return grid.ManhattanDistance(a.Position, dest) - grid.ManhattanDistance(b.Position, dest)
	})

	for _, c := range ray {
		if c.Position == from && c.BlocksMovement == BlocksEnabled {
			return false
		}
	}

	// the object armed after the commit; found before pushes shift positions
	var blocker *Object
	for _, c := range ray {
		if c.Position == dest && c.BlocksMovement != NoBlocking {
			blocker = c
			break
		}
	}

	r := &pushResolver{
		ray:     ray,
		delta:   delta,
		dims:    dims,
		canPush: canPush,
		marked:  make(map[*Object]bool),
	}
	for _, c := range ray {
		if c.Position != dest {
			continue
		}
		if r.displace(c, mover.Weight) {
			continue
		}
		if c.Massive {
			return false
		}
	}

	for _, o := range r.order {
		o.Position = o.Position.Add(delta)
	}
	mover.Position = dest

	if blocker != nil {
		blocker.BlocksMovement = BlocksEnabled
	}
	return true
}

// alongRay keeps the candidates on the mover's cell or further along delta.
func alongRay(candidates []*Object, mover *Object, from grid.Position, delta grid.Delta) []*Object {
	ray := make([]*Object, 0, len(candidates))
	for _, c := range candidates {
		if c == mover {
			continue
		}
		p := c.Position
		var ok bool
		switch {
		case delta.DX > 0:
			ok = p.Y == from.Y && p.X >= from.X
		case delta.DX < 0:
			ok = p.Y == from.Y && p.X <= from.X
		case delta.DY > 0:
			ok = p.X == from.X && p.Y >= from.Y
		case delta.DY < 0:
			ok = p.X == from.X && p.Y <= from.Y
		}
		if ok {
			ray = append(ray, c)
		}
	}
	return ray
}

// pushResolver decides which objects a move displaces. Marks are
// tentative: a failed branch rolls back everything it marked.
type pushResolver struct {
	ray     []*Object
	delta   grid.Delta
	dims    grid.Dimensions
	canPush bool
	marked  map[*Object]bool
	order   []*Object
}

func (r *pushResolver) displace(o *Object, pusher Weight) bool {
	if !r.canPush || !o.Pushable || pusher < o.Weight {
		return false
	}
	if r.marked[o] {
		return true
	}

	checkpoint := len(r.order)
	r.marked[o] = true
	r.order = append(r.order, o)
	if r.accepts(o.Position.Add(r.delta), o.Weight) {
		return true
	}
	r.rollback(checkpoint)
	return false
}

// accepts reports whether a pusher of the given weight can shove something
// into p: p is in bounds, nothing there blocks pushes, and every solid
// occupant can itself be displaced further.
func (r *pushResolver) accepts(p grid.Position, pusher Weight) bool {
	if !r.dims.Contains(p) {
		return false
	}

	var occupants []*Object
	for _, o := range r.ray {
		if o.Position == p {
			if o.BlocksPushes {
				return false
			}
			occupants = append(occupants, o)
		}
	}

	for _, o := range occupants {
		if !o.Massive && !o.Pushable {
			continue
		}
		if !r.displace(o, pusher) {
			return false
		}
	}
	return true
}

func (r *pushResolver) rollback(checkpoint int) {
	for _, o := range r.order[checkpoint:] {
		delete(r.marked, o)
	}
	r.order = r.order[:checkpoint]
}

// movementTick advances every autonomous mover by one step. Movers ignore
// each other and never push.
func (w *World) movementTick() []Event {
	var events []Event
	solid := func(o *Object) bool { return o.Movable == NotMovable && !o.IsEffect() }

	for _, m := range slices.Clone(w.Objects) {
		if m.Movable == NotMovable || w.Object(m.ID) == nil {
			continue
		}
		candidates := w.others(m, solid)
		from := m.Position

		switch m.Movable {
		case Bounce:
			if !AttemptMove(m, m.Facing().Delta(), w.Dimensions, candidates, false) {
				m.SetFacing(m.Facing().Inverse())
			}
		case FollowRightHand:
			facing := m.Facing()
			right := facing.RightHand()
			switch {
			case AttemptMove(m, right.Delta(), w.Dimensions, candidates, false):
				m.SetFacing(right)
			case AttemptMove(m, facing.Delta(), w.Dimensions, candidates, false):
			default:
				m.SetFacing(facing.LeftHand())
			}
		}

		if m.Position != from {
			events = append(events, Event{Type: EventMoverMoved, ObjectID: m.ID, Object: m.Name(), Position: m.Position})
		}
	}
	return events
}

// transporterTick conveys at most one object per transporter, and never the
// same object twice in one tick.
func (w *World) transporterTick() []Event {
	var events []Event
	moved := make(map[ObjectID]bool)

	for _, tr := range slices.Clone(w.Objects) {
		if !tr.Transporter {
			continue
		}

		var cargo *Object
		for _, o := range w.Objects {
			if o.Position == tr.Position && !o.Transporter && !o.IsEffect() && !moved[o.ID] {
				cargo = o
				break
			}
		}
		if cargo == nil {
			continue
		}

		candidates := w.others(tr, notEffect)
		if AttemptMove(cargo, tr.Facing().Delta(), w.Dimensions, candidates, false) {
			moved[cargo.ID] = true
			events = append(events, Event{Type: EventConveyed, ObjectID: cargo.ID, Object: cargo.Name(), Position: cargo.Position})
			continue
		}

		if tr.BlocksMovement != BlocksDisabled {
			tr.BlocksMovement = BlocksDisabled
			events = append(events, Event{Type: EventTransporterStuck, ObjectID: tr.ID, Object: tr.Name(), Position: tr.Position})
		}
	}
	return events
}
