package level

import (
	"slices"

	"github.com/wricardo/tilepuzzle/game/grid"
)

// ObjectType names a kind of object that can be placed in a level file.
type ObjectType string

const (
	BlueBlock    ObjectType = "BlueBlock"
	BouncingBall ObjectType = "BouncingBall"
	Button       ObjectType = "Button"
	Creature1    ObjectType = "Creature1"
	Exit         ObjectType = "Exit"
	Gate         ObjectType = "Gate"
	Mine         ObjectType = "Mine"
	Player       ObjectType = "Player"
	PurpleBlock  ObjectType = "PurpleBlock"
	Raft         ObjectType = "Raft"
	RedBlock     ObjectType = "RedBlock"
	Transporter  ObjectType = "Transporter"
	Water        ObjectType = "Water"
	YellowBlock  ObjectType = "YellowBlock"
)

// ObjectTypes lists every type in its canonical order. Saving and spawning
// both walk types in this order.
var ObjectTypes = []ObjectType{
	BlueBlock,
	BouncingBall,
	Button,
	Creature1,
	Exit,
	Gate,
	Mine,
	Player,
	PurpleBlock,
	Raft,
	RedBlock,
	Transporter,
	Water,
	YellowBlock,
}

// ParseObjectType looks up a section name. Names are case-sensitive.
func ParseObjectType(s string) (ObjectType, bool) {
	t := ObjectType(s)
	if slices.Contains(ObjectTypes, t) {
		return t, true
	}
	return "", false
}

// Index returns the position of t in ObjectTypes, or -1.
func (t ObjectType) Index() int {
	return slices.Index(ObjectTypes, t)
}

// Placement is one initial object position with an optional facing.
type Placement struct {
	Position  grid.Position   `json:"position"`
	Direction *grid.Direction `json:"direction,omitempty"`
}

// Level is the initial layout of a grid: its dimensions and the placements of
// every object type.
type Level struct {
	Dimensions grid.Dimensions            `json:"dimensions"`
	Objects    map[ObjectType][]Placement `json:"objects"`
}

// New returns an empty level with default dimensions.
func New() *Level {
	return &Level{
		Dimensions: grid.DefaultDimensions(),
		Objects:    make(map[ObjectType][]Placement),
	}
}

// Add appends placements for t.
func (l *Level) Add(t ObjectType, placements ...Placement) {
	if len(placements) == 0 {
		return
	}
	l.Objects[t] = append(l.Objects[t], placements...)
}

// Types returns the object types present in the level in canonical order.
func (l *Level) Types() []ObjectType {
	types := make([]ObjectType, 0, len(l.Objects))
	for _, t := range ObjectTypes {
		if len(l.Objects[t]) > 0 {
			types = append(types, t)
		}
	}
	return types
}

// Count returns the number of placements of t.
func (l *Level) Count(t ObjectType) int {
	return len(l.Objects[t])
}

// Total returns the number of placements across all types.
func (l *Level) Total() int {
	n := 0
	for _, p := range l.Objects {
		n += len(p)
	}
	return n
}

// At builds a placement, taking the facing by value.
func At(x, y int, dir ...grid.Direction) Placement {
	p := Placement{Position: grid.Position{X: x, Y: y}}
	if len(dir) > 0 {
		d := dir[0]
		p.Direction = &d
	}
	return p
}
