package scripting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// entryPoint is the Lua function asked for the next intent.
const entryPoint = "next_move"

// DefaultCallTimeout bounds a single next_move call.
const DefaultCallTimeout = time.Second

// Action is what the script wants to happen next.
type Action int

const (
	ActionStop Action = iota
	ActionMove
	ActionWait
	ActionReload
)

func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionWait:
		return "wait"
	case ActionReload:
		return "reload"
	default:
		return "stop"
	}
}

// Intent is one decision returned by next_move.
type Intent struct {
	Action    Action
	Direction grid.Direction
}

func (i Intent) String() string {
	if i.Action == ActionMove {
		return "move " + i.Direction.String()
	}
	return i.Action.String()
}

// Autopilot wraps a gopher-lua VM running a player script.
// Single-goroutine access only.
type Autopilot struct {
	vm      *lua.LState
	log     *zap.Logger
	timeout time.Duration

	// current is the state handed to the running next_move call; the
	// objects_at builtin reads it.
	current *engine.GameState
}

// NewAutopilot compiles source and checks that it defines next_move.
func NewAutopilot(name, source string, log *zap.Logger) (*Autopilot, error) {
	a := newAutopilot(log)
	if err := a.vm.DoString(source); err != nil {
		a.vm.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if err := a.checkEntryPoint(name); err != nil {
		a.vm.Close()
		return nil, err
	}
	a.log.Debug("loaded lua script", zap.String("name", name))
	return a, nil
}

// LoadAutopilot reads a script file.
func LoadAutopilot(path string, log *zap.Logger) (*Autopilot, error) {
	a := newAutopilot(log)
	if err := a.vm.DoFile(path); err != nil {
		a.vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := a.checkEntryPoint(path); err != nil {
		a.vm.Close()
		return nil, err
	}
	a.log.Debug("loaded lua script", zap.String("file", path))
	return a, nil
}

func newAutopilot(log *zap.Logger) *Autopilot {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	a := &Autopilot{vm: vm, log: log.Named("autopilot"), timeout: DefaultCallTimeout}

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("objects_at", vm.NewFunction(a.luaObjectsAt))
	vm.SetGlobal("log", vm.NewFunction(a.luaLog))
	return a
}

func (a *Autopilot) checkEntryPoint(name string) error {
	if _, ok := a.vm.GetGlobal(entryPoint).(*lua.LFunction); !ok {
		return fmt.Errorf("%s: lua function %s not found", name, entryPoint)
	}
	return nil
}

// SetTimeout changes the per-call limit. Zero disables it.
func (a *Autopilot) SetTimeout(d time.Duration) {
	a.timeout = d
}

// Close shuts down the Lua VM.
func (a *Autopilot) Close() {
	a.vm.Close()
}

// Next calls next_move(state) and converts the returned string into an
// Intent. nil or "stop" stops the run.
func (a *Autopilot) Next(ctx context.Context, state *engine.GameState) (Intent, error) {
	if state == nil {
		return Intent{}, engine.ErrNilState
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	a.vm.SetContext(ctx)
	defer a.vm.RemoveContext()

	a.current = state
	defer func() { a.current = nil }()

	if err := a.vm.CallByParam(lua.P{
		Fn:      a.vm.GetGlobal(entryPoint),
		NRet:    1,
		Protect: true,
	}, a.stateTable(state)); err != nil {
		return Intent{}, fmt.Errorf("lua %s: %w", entryPoint, err)
	}

	result := a.vm.Get(-1)
	a.vm.Pop(1)

	if result == lua.LNil {
		return Intent{Action: ActionStop}, nil
	}
	s, ok := result.(lua.LString)
	if !ok {
		return Intent{}, fmt.Errorf("lua %s returned %s, want string", entryPoint, result.Type())
	}
	return ParseIntent(string(s))
}

// ParseIntent accepts a direction name or one of "wait", "reload", "stop".
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop", "":
		return Intent{Action: ActionStop}, nil
	case "wait":
		return Intent{Action: ActionWait}, nil
	case "reload", "reset":
		return Intent{Action: ActionReload}, nil
	}
	d, ok := grid.ParseDirectionFold(s)
	if !ok {
		return Intent{}, fmt.Errorf("unknown intent %q", s)
	}
	return Intent{Action: ActionMove, Direction: d}, nil
}

// stateTable packs the parts of the game state a script can reason about.
func (a *Autopilot) stateTable(state *engine.GameState) *lua.LTable {
	t := a.vm.NewTable()
	t.RawSetString("level", lua.LNumber(state.Level))
	t.RawSetString("level_count", lua.LNumber(state.LevelCount))
	t.RawSetString("game_over", lua.LBool(state.GameOver))
	t.RawSetString("completed", lua.LBool(state.Completed))
	t.RawSetString("total_moves", lua.LNumber(state.TotalMoves))

	if w := state.World; w != nil {
		t.RawSetString("width", lua.LNumber(w.Dimensions.Width))
		t.RawSetString("height", lua.LNumber(w.Dimensions.Height))
		t.RawSetString("clock_ms", lua.LNumber(w.Clock.Milliseconds()))
	}

	if p := state.PlayerPos; p != nil {
		pos := a.vm.NewTable()
		pos.RawSetString("x", lua.LNumber(p.X))
		pos.RawSetString("y", lua.LNumber(p.Y))
		t.RawSetString("player", pos)
	}

	board := a.vm.NewTable()
	for i, row := range state.Board {
		board.RawSetInt(i+1, lua.LString(row))
	}
	t.RawSetString("board", board)

	around := a.vm.NewTable()
	for i, cell := range state.LocalView {
		if i >= len(grid.Directions) {
			break
		}
		c := a.vm.NewTable()
		c.RawSetString("x", lua.LNumber(cell.X))
		c.RawSetString("y", lua.LNumber(cell.Y))
		c.RawSetString("blocked", lua.LBool(cell.Blocked))
		objects := a.vm.NewTable()
		for j, name := range cell.Objects {
			objects.RawSetInt(j+1, lua.LString(name))
		}
		c.RawSetString("objects", objects)
		around.RawSetString(strings.ToLower(grid.Directions[i].String()), c)
	}
	t.RawSetString("around", around)

	return t
}

// luaObjectsAt implements objects_at(x, y): the type names at a cell of the
// state being decided on.
func (a *Autopilot) luaObjectsAt(L *lua.LState) int {
	x := L.CheckInt(1)
	y := L.CheckInt(2)

	names := L.NewTable()
	if a.current != nil && a.current.World != nil {
		for i, o := range a.current.World.ObjectsAt(grid.Position{X: x, Y: y}) {
			names.RawSetInt(i+1, lua.LString(o.Name()))
		}
	}
	L.Push(names)
	return 1
}

func (a *Autopilot) luaLog(L *lua.LState) int {
	a.log.Info("script", zap.String("msg", L.CheckString(1)))
	return 0
}
