package engine

import (
	"github.com/wricardo/tilepuzzle/game/grid"
)

// commands collects world mutations produced by the interaction rules. Every
// rule reads the same post-movement snapshot; the queue is applied once all
// rules have run.
type commands struct {
	ops []func(w *World)
}

func (c *commands) despawn(id ObjectID) {
	c.ops = append(c.ops, func(w *World) { w.Despawn(id) })
}

func (c *commands) spawn(e Effect, p grid.Position) {
	c.ops = append(c.ops, func(w *World) { w.spawnEffect(e, p) })
}

func (c *commands) update(id ObjectID, fn func(o *Object)) {
	c.ops = append(c.ops, func(w *World) {
		if o := w.Object(id); o != nil {
			fn(o)
		}
	})
}

func (c *commands) apply(w *World) {
	for _, op := range c.ops {
		op(w)
	}
	c.ops = nil
}

// ruleContext is shared by the rules of one interaction pass.
type ruleContext struct {
	world         *World
	objects       []*Object
	cmd           commands
	out           *Outcome
	playerRemoved bool
	exitReached   bool
}

func (rc *ruleContext) at(p grid.Position) []*Object {
	var out []*Object
	for _, o := range rc.objects {
		if o.Position == p {
			out = append(out, o)
		}
	}
	return out
}

func (rc *ruleContext) emit(e Event) {
	rc.out.Events = append(rc.out.Events, e)
}

// runInteractionRules evaluates deadly contact, exits, explosives, liquids and
// triggers against the current positions, then applies what they queued.
func (w *World) runInteractionRules(out *Outcome) {
	rc := &ruleContext{
		world:   w,
		objects: w.others(nil, notEffect),
		out:     out,
	}

	rc.deadlyRule()
	rc.exitRule()
	rc.explosiveRule()
	rc.liquidRule()
	rc.triggerRule()

	rc.cmd.apply(w)

	if rc.exitReached && !rc.playerRemoved {
		out.Advance = true
	}
}

func (rc *ruleContext) deadlyRule() {
	for _, p := range rc.objects {
		if !p.Player {
			continue
		}
		for _, d := range rc.at(p.Position) {
			if d == p || !d.Deadly {
				continue
			}
			rc.cmd.despawn(p.ID)
			rc.cmd.despawn(d.ID)
			rc.cmd.spawn(Grave, p.Position)
			rc.playerRemoved = true
			rc.emit(Event{Type: EventPlayerKilled, ObjectID: d.ID, Object: d.Name(), Position: p.Position})
			break
		}
	}
}

func (rc *ruleContext) exitRule() {
	for _, p := range rc.objects {
		if !p.Player {
			continue
		}
		for _, e := range rc.at(p.Position) {
			if e.Exit {
				rc.exitReached = true
			}
		}
	}
}

func (rc *ruleContext) explosiveRule() {
	for _, mine := range rc.objects {
		if !mine.Explosive {
			continue
		}
		for _, other := range rc.at(mine.Position) {
			if other == mine || other.Explosive {
				continue
			}
			rc.cmd.despawn(mine.ID)
			rc.cmd.despawn(other.ID)
			rc.cmd.spawn(Explosion, mine.Position)
			rc.emit(Event{Type: EventExploded, ObjectID: other.ID, Object: other.Name(), Position: mine.Position})
			if other.Player {
				rc.playerRemoved = true
				rc.out.Reload = true
			}
		}
	}
}

func (rc *ruleContext) liquidRule() {
	sunk := make(map[ObjectID]bool)
	for _, liquid := range rc.objects {
		if !liquid.Liquid {
			continue
		}
		cell := rc.at(liquid.Position)
		for _, other := range cell {
			if other.Liquid || sunk[other.ID] {
				continue
			}

			if other.Floatable {
				if !floatableBesides(cell, other) && other.Pushable {
					rc.cmd.update(other.ID, func(o *Object) { o.Pushable = false })
					rc.emit(Event{Type: EventDocked, ObjectID: other.ID, Object: other.Name(), Position: other.Position})
				}
				continue
			}

			if floatableBesides(cell, nil) {
				continue
			}
			sunk[other.ID] = true
			rc.cmd.despawn(other.ID)
			rc.cmd.spawn(Splash, other.Position)
			rc.emit(Event{Type: EventSank, ObjectID: other.ID, Object: other.Name(), Position: other.Position})
			if other.Player {
				rc.playerRemoved = true
				rc.out.Reload = true
			}
		}
	}
}

func floatableBesides(cell []*Object, exclude *Object) bool {
	for _, o := range cell {
		if o != exclude && o.Floatable {
			return true
		}
	}
	return false
}

// triggerRule counts triggers covered by a plain object and opens or closes
// every gate when that count changes.
func (rc *ruleContext) triggerRule() {
	var triggers, gates, plain []*Object
	for _, o := range rc.objects {
		switch {
		case o.Trigger:
			triggers = append(triggers, o)
		case o.Openable:
			gates = append(gates, o)
		default:
			plain = append(plain, o)
		}
	}

	pressed := 0
	for _, t := range triggers {
		for _, o := range plain {
			if o.Position == t.Position {
				pressed++
				break
			}
		}
	}

	w := rc.world
	switch {
	case pressed > w.PressedTriggers:
		for _, g := range gates {
			rc.cmd.update(g.ID, func(o *Object) {
				o.Massive = false
				o.Frame = 1
			})
			rc.emit(Event{Type: EventGateOpened, ObjectID: g.ID, Object: g.Name(), Position: g.Position})
		}
	case pressed < w.PressedTriggers:
		for _, g := range gates {
			rc.cmd.update(g.ID, func(o *Object) {
				o.Massive = true
				o.Frame = 0
			})
			rc.emit(Event{Type: EventGateClosed, ObjectID: g.ID, Object: g.Name(), Position: g.Position})
		}
	}
	w.PressedTriggers = pressed
}
