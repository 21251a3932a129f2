package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/service"
	"go.uber.org/zap"
)

// Service is the part of the game service the terminal client drives.
type Service interface {
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error)
	Advance(ctx context.Context, sessionID string, d time.Duration) (*service.AdvanceResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	ChangeLevel(ctx context.Context, sessionID string, delta int) (*engine.GameState, error)
	ToggleEditor(ctx context.Context, sessionID string) (*service.EditorResult, error)
	PlaceObject(ctx context.Context, sessionID, objectType string, x, y int, direction string) (*service.EditorResult, error)
	EraseCell(ctx context.Context, sessionID string, x, y int) (*service.EditorResult, error)
	ResizeGrid(ctx context.Context, sessionID string, dw, dh int) (*service.EditorResult, error)
	SaveLevel(ctx context.Context, sessionID string) (*service.EditorResult, error)
}

// Options configures an App.
type Options struct {
	SessionID string
	// Frame is how much simulated time passes per screen tick. Zero leaves
	// the clock to the server.
	Frame  time.Duration
	Sounds Sounder
	Log    *zap.Logger
}

// App is the terminal client: it renders one session and turns keys into
// service calls.
type App struct {
	screen tcell.Screen
	svc    Service
	opts   Options
	log    *zap.Logger

	state   *engine.GameState
	message string

	// Editor palette and cursor.
	cursor  grid.Position
	palette int
	facing  grid.Direction
}

// New creates an App on an initialized screen.
func New(screen tcell.Screen, svc Service, opts Options) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Sounds == nil {
		opts.Sounds = silent{}
	}
	return &App{
		screen: screen,
		svc:    svc,
		opts:   opts,
		log:    log.Named("tui"),
		cursor: grid.Position{X: 1, Y: 1},
	}
}

type silent struct{}

func (silent) Play(Sound) {}

// State is the last state the client received.
func (a *App) State() *engine.GameState {
	return a.state
}

// Refresh fetches the session state and redraws.
func (a *App) Refresh(ctx context.Context) error {
	state, err := a.svc.GetGameState(ctx, a.opts.SessionID)
	if err != nil {
		return err
	}
	a.setState(state)
	if p := state.PlayerPos; p != nil {
		a.cursor = *p
	}
	a.Draw()
	return nil
}

// Run draws the session and processes input until the user quits or ctx
// ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Refresh(ctx); err != nil {
		return err
	}

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	var tick <-chan time.Time
	if a.opts.Frame > 0 {
		ticker := time.NewTicker(a.opts.Frame)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if a.HandleKey(ctx, ev.Key(), ev.Rune()) {
					return nil
				}
			case *tcell.EventResize:
				a.screen.Sync()
				a.Draw()
			}
		case <-tick:
			a.Tick(ctx)
		}
	}
}

// Tick advances the session by one frame and redraws when the world changed.
func (a *App) Tick(ctx context.Context) {
	if a.state == nil || a.state.Editor {
		return
	}
	res, err := a.svc.Advance(ctx, a.opts.SessionID, a.opts.Frame)
	if err != nil {
		a.fail("advance", err)
		return
	}
	if !res.Changed {
		return
	}
	a.setState(res.GameState)
	a.playFor(res.Events, true)
	a.Draw()
}

// HandleKey runs the command bound to a key and reports whether the client
// should quit.
func (a *App) HandleKey(ctx context.Context, key tcell.Key, r rune) bool {
	cmd := commandFor(key, r)
	if cmd == cmdQuit {
		return true
	}
	if cmd == cmdNone {
		return false
	}

	if d, ok := cmd.direction(); ok {
		if a.editing() {
			a.moveCursor(d)
		} else {
			a.move(ctx, d)
		}
		a.Draw()
		return false
	}

	id := a.opts.SessionID
	switch cmd {
	case cmdWait:
		res, err := a.svc.Advance(ctx, id, engine.DefaultTiming().Movement)
		if err != nil {
			a.fail("wait", err)
			break
		}
		a.setState(res.GameState)
		a.playFor(res.Events, true)
	case cmdReload:
		a.stateCall("reload", func() (*engine.GameState, error) { return a.svc.Reset(ctx, id) })
	case cmdNextLevel:
		a.stateCall("next level", func() (*engine.GameState, error) { return a.svc.ChangeLevel(ctx, id, 1) })
	case cmdPrevLevel:
		a.stateCall("previous level", func() (*engine.GameState, error) { return a.svc.ChangeLevel(ctx, id, -1) })
	case cmdEditor:
		a.editorCall("editor", func() (*service.EditorResult, error) { return a.svc.ToggleEditor(ctx, id) })
		if a.editing() && a.state.PlayerPos != nil {
			a.cursor = *a.state.PlayerPos
		}
	default:
		if a.editing() {
			a.editorCommand(ctx, cmd)
		}
	}
	a.Draw()
	return false
}

func (a *App) editorCommand(ctx context.Context, cmd command) {
	id := a.opts.SessionID
	switch cmd {
	case cmdPlace:
		t := a.selected()
		dir := ""
		if engine.IsDirectional(t) {
			dir = a.facing.String()
		}
		a.editorCall("place", func() (*service.EditorResult, error) {
			return a.svc.PlaceObject(ctx, id, string(t), a.cursor.X, a.cursor.Y, dir)
		})
	case cmdErase:
		a.editorCall("erase", func() (*service.EditorResult, error) {
			return a.svc.EraseCell(ctx, id, a.cursor.X, a.cursor.Y)
		})
	case cmdNextType:
		a.palette = (a.palette + 1) % len(level.ObjectTypes)
	case cmdPrevType:
		a.palette = (a.palette + len(level.ObjectTypes) - 1) % len(level.ObjectTypes)
	case cmdRotate:
		a.facing = a.facing.RightHand()
	case cmdWider, cmdNarrower, cmdTaller, cmdShorter:
		dw, dh := cmd.resize()
		a.editorCall("resize", func() (*service.EditorResult, error) {
			return a.svc.ResizeGrid(ctx, id, dw, dh)
		})
		a.clampCursor()
	case cmdSave:
		if a.editorCall("save", func() (*service.EditorResult, error) { return a.svc.SaveLevel(ctx, id) }) {
			a.message = fmt.Sprintf("Saved level %d", a.state.Level)
		}
	}
}

func (a *App) move(ctx context.Context, d grid.Direction) {
	res, err := a.svc.Move(ctx, a.opts.SessionID, d.String(), false)
	if err != nil {
		a.fail("move", err)
		return
	}
	a.setState(res.GameState)
	s := soundFor(res.Events, false)
	if s == SoundNone && !res.Success {
		s = SoundBlocked
	}
	if s != SoundNone {
		a.opts.Sounds.Play(s)
	}
}

func (a *App) stateCall(what string, fn func() (*engine.GameState, error)) {
	state, err := fn()
	if err != nil {
		a.fail(what, err)
		return
	}
	a.setState(state)
}

func (a *App) editorCall(what string, fn func() (*service.EditorResult, error)) bool {
	res, err := fn()
	if err != nil {
		a.fail(what, err)
		return false
	}
	a.setState(res.GameState)
	return true
}

func (a *App) setState(state *engine.GameState) {
	if state == nil {
		return
	}
	a.state = state
	a.message = state.Message
}

func (a *App) fail(what string, err error) {
	a.log.Warn("request failed", zap.String("op", what), zap.Error(err))
	a.message = fmt.Sprintf("%s: %v", what, err)
}

func (a *App) editing() bool {
	return a.state != nil && a.state.Editor
}

func (a *App) selected() level.ObjectType {
	return level.ObjectTypes[a.palette]
}

func (a *App) moveCursor(d grid.Direction) {
	next := a.cursor.Add(d.Delta())
	if a.state != nil && a.state.World != nil && !a.state.World.Dimensions.Contains(next) {
		return
	}
	a.cursor = next
}

func (a *App) clampCursor() {
	if a.state == nil || a.state.World == nil {
		return
	}
	dims := a.state.World.Dimensions
	a.cursor.X = min(max(a.cursor.X, 1), dims.Width)
	a.cursor.Y = min(max(a.cursor.Y, 1), dims.Height)
}

// playFor picks the most important cue among events. Gate cues are skipped
// on clock ticks so a moving block on a button does not chatter.
func (a *App) playFor(events []service.GameEvent, tick bool) {
	if s := soundFor(events, tick); s != SoundNone {
		a.opts.Sounds.Play(s)
	}
}

func soundFor(events []service.GameEvent, tick bool) Sound {
	best := SoundNone
	for _, e := range events {
		var s Sound
		switch engine.EventType(e.Type) {
		case engine.EventLevelComplete, engine.EventGameComplete:
			s = SoundExit
		case engine.EventPlayerKilled:
			s = SoundDeath
		case engine.EventExploded:
			s = SoundExplosion
		case engine.EventSank:
			s = SoundSplash
		case engine.EventGateOpened, engine.EventGateClosed:
			if !tick {
				s = SoundGate
			}
		}
		if priority(s) > priority(best) {
			best = s
		}
	}
	return best
}

func priority(s Sound) int {
	switch s {
	case SoundExit:
		return 5
	case SoundDeath:
		return 4
	case SoundExplosion:
		return 3
	case SoundSplash:
		return 2
	case SoundGate, SoundBlocked:
		return 1
	}
	return 0
}
