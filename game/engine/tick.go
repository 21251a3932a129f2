package engine

import (
	"slices"
	"time"

	"github.com/wricardo/tilepuzzle/game/grid"
)

// Outcome is what a single simulation step produced.
type Outcome struct {
	// Moved is set when a player intent was given and the player moved.
	Moved bool
	// Reload asks the engine to restart the current level.
	Reload bool
	// Advance asks the engine to go to the next level.
	Advance bool
	Events  []Event
}

// Step runs one frame: the player intent, the movement and transporter ticks
// when their timers fire, the interaction rules and volatile cleanup. A nil
// intent only lets time pass.
func (w *World) Step(intent *grid.Direction, dt time.Duration) Outcome {
	var out Outcome
	w.resolveIntent(intent, &out)
	w.applyMovement(dt, &out)
	w.runInteractionRules(&out)
	w.pruneVolatiles()
	return out
}

func (w *World) resolveIntent(intent *grid.Direction, out *Outcome) {
	if intent == nil {
		return
	}
	player := w.Player()
	if player == nil {
		return
	}

	candidates := w.others(player, notEffect)
	if AttemptMove(player, intent.Delta(), w.Dimensions, candidates, true) {
		out.Moved = true
		out.Events = append(out.Events, Event{Type: EventPlayerMoved, ObjectID: player.ID, Object: player.Name(), Position: player.Position})
		return
	}
	out.Events = append(out.Events, Event{Type: EventPlayerBlocked, ObjectID: player.ID, Object: player.Name(), Position: player.Position})
}

// applyMovement advances the world clock and fires the autonomous movement
// and transporter ticks. Nothing here runs while the world is paused.
func (w *World) applyMovement(dt time.Duration, out *Outcome) {
	if w.Paused || dt <= 0 {
		return
	}
	w.Clock += dt
	if w.MovementTimer.Tick(dt) {
		out.Events = append(out.Events, w.movementTick()...)
	}
	if w.TransporterTimer.Tick(dt) {
		out.Events = append(out.Events, w.transporterTick()...)
	}
}

func (w *World) pruneVolatiles() {
	w.Objects = slices.DeleteFunc(w.Objects, func(o *Object) bool {
		return o.Volatile && w.Clock-o.SpawnedAt >= w.Timing.Volatile
	})
}
