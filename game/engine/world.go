package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"go.uber.org/zap"
)

// Timing holds the simulation clock periods.
type Timing struct {
	Frame       time.Duration `json:"frame" toml:"frame"`
	Movement    time.Duration `json:"movement" toml:"movement"`
	Transporter time.Duration `json:"transporter" toml:"transporter"`
	Volatile    time.Duration `json:"volatile" toml:"volatile"`
}

// DefaultTiming returns the periods used when nothing else is configured.
func DefaultTiming() Timing {
	return Timing{
		Frame:       100 * time.Millisecond,
		Movement:    500 * time.Millisecond,
		Transporter: time.Second,
		Volatile:    500 * time.Millisecond,
	}
}

// Timer fires once every Period of accumulated time.
type Timer struct {
	Period  time.Duration `json:"period"`
	Elapsed time.Duration `json:"elapsed"`
}

// Tick adds dt and reports whether the timer fired. A timer fires at most once
// per call.
func (t *Timer) Tick(dt time.Duration) bool {
	if t.Period <= 0 {
		return false
	}
	t.Elapsed += dt
	if t.Elapsed < t.Period {
		return false
	}
	t.Elapsed %= t.Period
	return true
}

// World is the live simulation of one level.
type World struct {
	Dimensions       grid.Dimensions `json:"dimensions"`
	Objects          []*Object       `json:"objects"`
	PressedTriggers  int             `json:"pressed_triggers"`
	Clock            time.Duration   `json:"clock"`
	MovementTimer    Timer           `json:"movement_timer"`
	TransporterTimer Timer           `json:"transporter_timer"`
	Paused           bool            `json:"paused"`
	Timing           Timing          `json:"timing"`
	NextID           ObjectID        `json:"next_id"`
}

// NewWorld spawns every placement of lvl in type order, then placement order.
// Placements outside the level dimensions are skipped with a warning.
func NewWorld(lvl *level.Level, timing Timing, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}

	w := &World{
		Dimensions:       lvl.Dimensions,
		Objects:          []*Object{},
		MovementTimer:    Timer{Period: timing.Movement},
		TransporterTimer: Timer{Period: timing.Transporter},
		Timing:           timing,
		NextID:           1,
	}

	for _, t := range lvl.Types() {
		for _, p := range lvl.Objects[t] {
			if _, err := w.Spawn(t, p.Position, p.Direction); err != nil {
				log.Warn("skipping placement", zap.String("type", string(t)),
					zap.Stringer("position", p.Position), zap.Error(err))
			}
		}
	}

	return w
}

// Spawn adds a level object of type t at p.
func (w *World) Spawn(t level.ObjectType, p grid.Position, dir *grid.Direction) (*Object, error) {
	traits, err := TraitsOf(t)
	if err != nil {
		return nil, err
	}
	if !w.Dimensions.Contains(p) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}

	o := &Object{
		ID:       w.NextID,
		Type:     t,
		Position: p,
		Traits:   traits,
	}
	if dir != nil {
		o.SetFacing(*dir)
	}
	w.NextID++
	w.Objects = append(w.Objects, o)
	return o, nil
}

func (w *World) spawnEffect(e Effect, p grid.Position) *Object {
	o := &Object{
		ID:        w.NextID,
		Effect:    e,
		Position:  p,
		SpawnedAt: w.Clock,
		Traits:    Traits{Volatile: true},
	}
	w.NextID++
	w.Objects = append(w.Objects, o)
	return o
}

// Despawn removes the object with the given id. Unknown ids are ignored.
func (w *World) Despawn(id ObjectID) bool {
	i := slices.IndexFunc(w.Objects, func(o *Object) bool { return o.ID == id })
	if i < 0 {
		return false
	}
	w.Objects = slices.Delete(w.Objects, i, i+1)
	return true
}

// Object looks an object up by id.
func (w *World) Object(id ObjectID) *Object {
	for _, o := range w.Objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// ObjectsAt returns the objects occupying p in spawn order.
func (w *World) ObjectsAt(p grid.Position) []*Object {
	var out []*Object
	for _, o := range w.Objects {
		if o.Position == p {
			out = append(out, o)
		}
	}
	return out
}

// Player returns the first player object, or nil once the player is gone.
func (w *World) Player() *Object {
	for _, o := range w.Objects {
		if o.Player {
			return o
		}
	}
	return nil
}

// PlayerCount counts player objects.
func (w *World) PlayerCount() int {
	n := 0
	for _, o := range w.Objects {
		if o.Player {
			n++
		}
	}
	return n
}

// Level converts the world back into a level description. Effects and
// objects outside the current dimensions are left out.
func (w *World) Level() *level.Level {
	lvl := level.New()
	lvl.Dimensions = w.Dimensions
	for _, o := range w.Objects {
		if o.IsEffect() || !w.Dimensions.Contains(o.Position) {
			continue
		}
		p := level.Placement{Position: o.Position}
		if o.Direction != nil {
			d := *o.Direction
			p.Direction = &d
		}
		lvl.Add(o.Type, p)
	}
	return lvl
}

// Erase removes every object at p and returns how many were removed.
func (w *World) Erase(p grid.Position) int {
	before := len(w.Objects)
	w.Objects = slices.DeleteFunc(w.Objects, func(o *Object) bool { return o.Position == p })
	return before - len(w.Objects)
}

// Resize grows or shrinks the world. Objects left outside stay in memory but
// are not saved.
func (w *World) Resize(dw, dh int) grid.Dimensions {
	w.Dimensions = w.Dimensions.Resize(dw, dh)
	return w.Dimensions
}

// Clone returns a deep copy of w.
func (w *World) Clone() *World {
	c := *w
	c.Objects = make([]*Object, len(w.Objects))
	for i, o := range w.Objects {
		c.Objects[i] = o.clone()
	}
	return &c
}

func (w *World) others(exclude *Object, keep func(*Object) bool) []*Object {
	out := make([]*Object, 0, len(w.Objects))
	for _, o := range w.Objects {
		if o == exclude || !keep(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func notEffect(o *Object) bool { return !o.IsEffect() }
