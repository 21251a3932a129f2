package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
)

// Weight gates pushing: a pusher may only displace objects no heavier than
// itself.
type Weight int

const (
	Light Weight = iota
	Heavy
)

func (w Weight) String() string {
	if w == Heavy {
		return "heavy"
	}
	return "light"
}

// MarshalText implements encoding.TextMarshaler.
func (w Weight) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Weight) UnmarshalText(text []byte) error {
	switch string(text) {
	case "light", "":
		*w = Light
	case "heavy":
		*w = Heavy
	default:
		return fmt.Errorf("unknown weight %q", string(text))
	}
	return nil
}

// Movable selects the autonomous behaviour of an object.
type Movable string

const (
	NotMovable      Movable = ""
	Bounce          Movable = "bounce"
	FollowRightHand Movable = "follow_right_hand"
)

// BlocksMovement is the transporter occupancy flag. The zero value means the
// object does not carry the trait at all.
type BlocksMovement string

const (
	NoBlocking     BlocksMovement = ""
	BlocksEnabled  BlocksMovement = "enabled"
	BlocksDisabled BlocksMovement = "disabled"
)

// Effect names a transient visual object. Effects are never saved and no rule
// looks at them.
type Effect string

const (
	NoEffect  Effect = ""
	Grave     Effect = "grave"
	Splash    Effect = "splash"
	Explosion Effect = "explosion"
)

// Traits are the orthogonal capability flags of a grid object.
type Traits struct {
	Massive        bool           `json:"massive,omitempty"`
	Pushable       bool           `json:"pushable,omitempty"`
	Weight         Weight         `json:"weight,omitempty"`
	Movable        Movable        `json:"movable,omitempty"`
	Floatable      bool           `json:"floatable,omitempty"`
	Liquid         bool           `json:"liquid,omitempty"`
	Deadly         bool           `json:"deadly,omitempty"`
	Explosive      bool           `json:"explosive,omitempty"`
	Trigger        bool           `json:"trigger,omitempty"`
	Openable       bool           `json:"openable,omitempty"`
	Transporter    bool           `json:"transporter,omitempty"`
	BlocksMovement BlocksMovement `json:"blocks_movement,omitempty"`
	BlocksPushes   bool           `json:"blocks_pushes,omitempty"`
	Volatile       bool           `json:"volatile,omitempty"`
	Player         bool           `json:"player,omitempty"`
	Exit           bool           `json:"exit,omitempty"`
}

// Validate rejects trait combinations that make no sense together. Sinking and
// exploding already kill the player, so Deadly on top of them is redundant.
func (t Traits) Validate() error {
	if t.Deadly && t.Explosive {
		return fmt.Errorf("%w: explosive objects cannot also be deadly", ErrInvalidTraits)
	}
	if t.Deadly && t.Liquid {
		return fmt.Errorf("%w: liquid objects cannot also be deadly", ErrInvalidTraits)
	}
	if t.Weight != Light && !t.Pushable && !t.Player {
		return fmt.Errorf("%w: weight only applies to pushers and pushables", ErrInvalidTraits)
	}
	return nil
}

// ObjectID identifies an object for the lifetime of a world. IDs increase in
// spawn order.
type ObjectID uint64

// Object is anything that occupies a grid cell.
type Object struct {
	ID        ObjectID         `json:"id"`
	Type      level.ObjectType `json:"type,omitempty"`
	Effect    Effect           `json:"effect,omitempty"`
	Position  grid.Position    `json:"position"`
	Direction *grid.Direction  `json:"direction,omitempty"`
	Frame     int              `json:"frame,omitempty"`
	SpawnedAt time.Duration    `json:"spawned_at,omitempty"`
	Traits
}

// Facing returns the object's direction, Up when it has none.
func (o *Object) Facing() grid.Direction {
	if o.Direction == nil {
		return grid.Up
	}
	return *o.Direction
}

// SetFacing records a new direction.
func (o *Object) SetFacing(d grid.Direction) {
	o.Direction = &d
}

// IsEffect reports whether o is a transient effect rather than a level object.
func (o *Object) IsEffect() bool {
	return o.Effect != NoEffect
}

// Name is the object type, or the effect name for effects.
func (o *Object) Name() string {
	if o.IsEffect() {
		return string(o.Effect)
	}
	return string(o.Type)
}

func (o *Object) clone() *Object {
	c := *o
	if o.Direction != nil {
		d := *o.Direction
		c.Direction = &d
	}
	return &c
}
