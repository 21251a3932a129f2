package grid

import (
	"fmt"
	"strings"
)

const (
	DefaultWidth  = 16
	DefaultHeight = 16
)

// Position is a 1-based cell coordinate. Y grows downward.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position shifted by d.
func (p Position) Add(d Delta) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}

// Less orders positions by (x, y).
func (p Position) Less(o Position) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Y < o.Y
}

// ManhattanDistance returns |dx| + |dy| between two positions.
func ManhattanDistance(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Delta is a unit step along one axis.
type Delta struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Direction is a cardinal facing. The declaration order is significant: it is
// the sort order used when saving levels.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists all directions in declaration order.
var Directions = []Direction{Up, Right, Down, Left}

var directionNames = [...]string{"Up", "Right", "Down", "Left"}

func (d Direction) String() string {
	if d < Up || d > Left {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the exact level-file spelling ("Up").
func ParseDirection(s string) (Direction, bool) {
	for i, name := range directionNames {
		if s == name {
			return Direction(i), true
		}
	}
	return Up, false
}

// ParseDirectionFold is ParseDirection without case sensitivity, for API input
// such as "up" or "LEFT".
func ParseDirectionFold(s string) (Direction, bool) {
	for i, name := range directionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Direction(i), true
		}
	}
	return Up, false
}

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	return (d + 2) % 4
}

// RightHand turns 90 degrees clockwise.
func (d Direction) RightHand() Direction {
	return (d + 1) % 4
}

// LeftHand turns 90 degrees counter-clockwise.
func (d Direction) LeftHand() Direction {
	return (d + 3) % 4
}

// Delta returns the unit step for d.
func (d Direction) Delta() Delta {
	switch d {
	case Right:
		return Delta{DX: 1}
	case Down:
		return Delta{DY: 1}
	case Left:
		return Delta{DX: -1}
	default:
		return Delta{DY: -1}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, ok := ParseDirectionFold(string(text))
	if !ok {
		return fmt.Errorf("unknown direction %q", string(text))
	}
	*d = parsed
	return nil
}

// Dimensions bound the grid. Both sides stay >= 1.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultDimensions returns the 16x16 grid used when a level omits its size.
func DefaultDimensions() Dimensions {
	return Dimensions{Width: DefaultWidth, Height: DefaultHeight}
}

// Contains reports whether p lies in [1,width]x[1,height].
func (d Dimensions) Contains(p Position) bool {
	return p.X >= 1 && p.Y >= 1 && p.X <= d.Width && p.Y <= d.Height
}

// Resize grows or shrinks the grid, keeping both sides >= 1.
func (d Dimensions) Resize(dw, dh int) Dimensions {
	return Dimensions{
		Width:  max(1, d.Width+dw),
		Height: max(1, d.Height+dh),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
