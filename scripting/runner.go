package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/service"
	"go.uber.org/zap"
)

// Driver is the part of the game service an autopilot needs.
type Driver interface {
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error)
	Advance(ctx context.Context, sessionID string, d time.Duration) (*service.AdvanceResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
}

// RunOptions limits an autopilot run.
type RunOptions struct {
	MaxSteps int
	// Wait is how much simulated time a "wait" intent advances.
	Wait time.Duration
	// OnStep is called with the state after every executed intent.
	OnStep func(Intent, *engine.GameState)
}

// Summary describes a finished run.
type Summary struct {
	Steps     int    `json:"steps"`
	Moves     int    `json:"moves"`
	Blocked   int    `json:"blocked"`
	Waits     int    `json:"waits"`
	Reloads   int    `json:"reloads"`
	Level     int    `json:"level"`
	Completed bool   `json:"completed"`
	Reason    string `json:"reason"`
}

// Run asks the script for intents and applies them to the session until the
// script stops, the pack is completed, MaxSteps is reached or ctx ends.
func (a *Autopilot) Run(ctx context.Context, d Driver, sessionID string, opts RunOptions) (*Summary, error) {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 1000
	}
	if opts.Wait <= 0 {
		opts.Wait = 500 * time.Millisecond
	}

	state, err := d.GetGameState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for sum.Steps < opts.MaxSteps {
		if err := ctx.Err(); err != nil {
			sum.Reason = "cancelled"
			break
		}
		if state.Completed {
			sum.Reason = "completed"
			break
		}

		intent, err := a.Next(ctx, state)
		if err != nil {
			sum.Level, sum.Completed = state.Level, state.Completed
			return sum, err
		}
		if intent.Action == ActionStop {
			sum.Reason = "script stopped"
			break
		}

		state, err = a.apply(ctx, d, sessionID, intent, opts.Wait, sum)
		if err != nil {
			return sum, fmt.Errorf("step %d (%s): %w", sum.Steps+1, intent, err)
		}
		sum.Steps++

		a.log.Debug("autopilot step",
			zap.Int("step", sum.Steps),
			zap.Stringer("intent", intent),
			zap.Int("level", state.Level),
			zap.Bool("game_over", state.GameOver))

		if opts.OnStep != nil {
			opts.OnStep(intent, state)
		}
	}
	if sum.Reason == "" {
		sum.Reason = "step limit"
	}

	sum.Level = state.Level
	sum.Completed = state.Completed
	return sum, nil
}

func (a *Autopilot) apply(ctx context.Context, d Driver, sessionID string, intent Intent, wait time.Duration, sum *Summary) (*engine.GameState, error) {
	switch intent.Action {
	case ActionMove:
		res, err := d.Move(ctx, sessionID, intent.Direction.String(), false)
		if err != nil {
			return nil, err
		}
		sum.Moves++
		if !res.Success {
			sum.Blocked++
		}
		return res.GameState, nil
	case ActionWait:
		res, err := d.Advance(ctx, sessionID, wait)
		if err != nil {
			return nil, err
		}
		sum.Waits++
		return res.GameState, nil
	case ActionReload:
		sum.Reloads++
		return d.Reset(ctx, sessionID)
	}
	return nil, fmt.Errorf("unsupported action %s", intent.Action)
}
