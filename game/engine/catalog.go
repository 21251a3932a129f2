package engine

import (
	"fmt"

	"github.com/wricardo/tilepuzzle/game/level"
)

// bundle is the fixed trait set and presentation of one object type.
type bundle struct {
	traits      Traits
	directional bool
	glyph       rune
	layer       int
}

// Higher layers are drawn on top when several objects share a cell.
const (
	layerFloor = iota
	layerFixture
	layerDoor
	layerFloat
	layerBlock
	layerMover
	layerPlayer
	layerEffect
)

var catalog = map[level.ObjectType]bundle{
	level.BlueBlock: {
		traits: Traits{Massive: true, Pushable: true, Weight: Light},
		glyph:  'B', layer: layerBlock,
	},
	level.BouncingBall: {
		traits:      Traits{Movable: Bounce, Deadly: true},
		directional: true, glyph: 'o', layer: layerMover,
	},
	level.Button: {
		traits: Traits{Trigger: true},
		glyph:  '_', layer: layerFixture,
	},
	level.Creature1: {
		traits:      Traits{Movable: FollowRightHand, Deadly: true},
		directional: true, glyph: 'c', layer: layerMover,
	},
	level.Exit: {
		traits: Traits{Exit: true},
		glyph:  'E', layer: layerFixture,
	},
	level.Gate: {
		traits: Traits{Openable: true, Massive: true},
		glyph:  'G', layer: layerDoor,
	},
	level.Mine: {
		traits: Traits{Explosive: true},
		glyph:  '*', layer: layerDoor,
	},
	level.Player: {
		traits: Traits{Player: true, Weight: Heavy},
		glyph:  '@', layer: layerPlayer,
	},
	level.PurpleBlock: {
		traits: Traits{Massive: true, Pushable: true, Weight: Heavy},
		glyph:  'P', layer: layerBlock,
	},
	level.Raft: {
		traits: Traits{Floatable: true, Pushable: true},
		glyph:  '=', layer: layerFloat,
	},
	level.RedBlock: {
		traits: Traits{Massive: true},
		glyph:  '#', layer: layerBlock,
	},
	level.Transporter: {
		traits:      Traits{Transporter: true, BlocksMovement: BlocksDisabled},
		directional: true, glyph: '^', layer: layerFixture,
	},
	level.Water: {
		traits: Traits{Liquid: true},
		glyph:  '~', layer: layerFloor,
	},
	level.YellowBlock: {
		traits: Traits{Massive: true, Pushable: true, BlocksPushes: true},
		glyph:  'Y', layer: layerBlock,
	},
}

var effectGlyphs = map[Effect]rune{
	Grave:     '+',
	Splash:    ',',
	Explosion: 'x',
}

// TraitsOf returns the trait bundle an object of type t spawns with.
func TraitsOf(t level.ObjectType) (Traits, error) {
	b, ok := catalog[t]
	if !ok {
		return Traits{}, fmt.Errorf("%w: %s", ErrUnknownObjectType, t)
	}
	return b.traits, nil
}

// IsDirectional reports whether objects of type t use their direction.
func IsDirectional(t level.ObjectType) bool {
	return catalog[t].directional
}

// Glyph is the single character used to draw o on a text board.
func Glyph(o *Object) rune {
	if o.IsEffect() {
		return effectGlyphs[o.Effect]
	}
	switch {
	case o.Transporter:
		return transporterGlyphs[o.Facing()]
	case o.Openable && o.Frame == 1:
		return 'g'
	}
	if b, ok := catalog[o.Type]; ok {
		return b.glyph
	}
	return '?'
}

var transporterGlyphs = [4]rune{'^', '>', 'v', '<'}

func layerOf(o *Object) int {
	if o.IsEffect() {
		return layerEffect
	}
	return catalog[o.Type].layer
}

func init() {
	for t, b := range catalog {
		if err := b.traits.Validate(); err != nil {
			panic(fmt.Sprintf("catalog entry %s: %v", t, err))
		}
	}
}
