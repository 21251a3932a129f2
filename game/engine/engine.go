package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"go.uber.org/zap"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	IsCompleted() bool
	GetPlayerPosition() (grid.Position, bool)

	// Simulation
	Move(direction grid.Direction) bool
	CanMove(direction grid.Direction) bool
	GetPossibleMoves() []grid.Direction
	Advance(d time.Duration) int
	DrainEvents() []Event

	// Levels
	LoadLevel(number int) error
	LoadRelativeLevel(delta int) error

	// Editor
	ToggleEditor() bool
	PlaceObject(t level.ObjectType, p grid.Position, dir *grid.Direction) (*Object, error)
	EraseAt(p grid.Position) (int, error)
	Resize(dw, dh int) (grid.Dimensions, error)
	SaveLevel() (string, error)

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	levels LevelSource
	timing Timing
	log    *zap.Logger
	events []Event
}

// Option customises a GameEngine.
type Option func(*GameEngine)

// WithTiming overrides the default simulation periods.
func WithTiming(t Timing) Option {
	return func(e *GameEngine) { e.timing = t }
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *GameEngine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates an engine playing level number from levels.
func NewEngine(levels LevelSource, number int, opts ...Option) (*GameEngine, error) {
	if levels == nil || levels.Count() == 0 {
		return nil, ErrNoLevels
	}

	e := &GameEngine{
		levels: levels,
		timing: DefaultTiming(),
		log:    zap.NewNop(),
		state: &GameState{
			MoveHistory:  []MoveHistoryEntry{},
			CurrentMoves: []MoveHistoryEntry{},
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.LoadLevel(number); err != nil {
		return nil, err
	}
	return e, nil
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil || state.World == nil {
		return ErrNilState
	}
	e.state = state
	e.state.LevelCount = e.levels.Count()
	e.refresh()
	return nil
}

// Reset reloads the current level. The cumulative history survives; only the
// current segment is cleared.
func (e *GameEngine) Reset() *GameState {
	if err := e.LoadLevel(e.state.Level); err != nil {
		e.log.Error("reload failed", zap.Int("level", e.state.Level), zap.Error(err))
	}
	return e.state
}

// IsGameOver returns whether the player is gone from the current level
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// IsCompleted returns whether the exit of the last level was reached
func (e *GameEngine) IsCompleted() bool {
	return e.state.Completed
}

// GetPlayerPosition returns the player position, false when there is none
func (e *GameEngine) GetPlayerPosition() (grid.Position, bool) {
	if p := e.state.World.Player(); p != nil {
		return p.Position, true
	}
	return grid.Position{}, false
}

// Move runs one zero-length step with a player intent
func (e *GameEngine) Move(direction grid.Direction) bool {
	from, _ := e.GetPlayerPosition()
	levelNumber := e.state.Level

	if e.state.GameOver {
		e.state.Message = "No player on the board. Reload the level to continue."
		e.addMoveToHistory(direction.String(), from, from, levelNumber, false)
		return false
	}

	out := e.state.World.Step(&direction, 0)
	to, _ := e.GetPlayerPosition()
	e.addMoveToHistory(direction.String(), from, to, levelNumber, out.Moved)

	if out.Moved {
		e.state.Message = fmt.Sprintf("Moved %s to %s", direction, to)
	} else {
		e.state.Message = fmt.Sprintf("Can't move %s from %s", direction, from)
	}
	e.handleOutcome(out)
	return out.Moved
}

// CanMove reports whether a move would succeed, without changing anything
func (e *GameEngine) CanMove(direction grid.Direction) bool {
	if e.state.GameOver {
		return false
	}
	p := e.state.World.Player()
	if p == nil {
		return false
	}
	return canEnter(e.state.World, p, direction)
}

// GetPossibleMoves returns all directions the player can move in
func (e *GameEngine) GetPossibleMoves() []grid.Direction {
	var possible []grid.Direction
	for _, d := range grid.Directions {
		if e.CanMove(d) {
			possible = append(possible, d)
		}
	}
	return possible
}

// Advance lets d of simulated time pass in frame-sized steps and returns the
// number of steps run.
func (e *GameEngine) Advance(d time.Duration) int {
	frame := e.timing.Frame
	if frame <= 0 {
		frame = DefaultTiming().Frame
	}

	steps := 0
	for d > 0 {
		dt := min(frame, d)
		d -= dt
		steps++
		e.handleOutcome(e.state.World.Step(nil, dt))
	}
	e.refresh()
	return steps
}

// Timing returns the simulation periods the engine was built with.
func (e *GameEngine) Timing() Timing {
	return e.timing
}

// DrainEvents returns the events collected since the last call.
func (e *GameEngine) DrainEvents() []Event {
	events := e.events
	e.events = nil
	return events
}

// LoadLevel (re)loads level number from the level source. The text is read on
// every call so edits on disk show up on the next load.
func (e *GameEngine) LoadLevel(number int) error {
	text, err := e.levels.LevelText(number)
	if err != nil {
		return fmt.Errorf("load level %d: %w", number, err)
	}

	lvl := level.Parse(text, e.log.With(zap.Int("level", number)))
	if n := lvl.Count(level.Player); n != 1 {
		e.log.Warn("level should have exactly one player", zap.Int("level", number), zap.Int("players", n))
	}

	world := NewWorld(lvl, e.timing, e.log)
	world.Paused = e.state.Editor

	e.state.Level = number
	e.state.LevelCount = e.levels.Count()
	e.state.World = world
	e.state.Completed = false
	e.state.CurrentMoves = []MoveHistoryEntry{}
	e.state.CurrentMovesCount = 0
	e.state.Message = fmt.Sprintf("Level %d of %d", number, e.state.LevelCount)
	e.events = append(e.events, Event{Type: EventLevelLoaded, Message: e.state.Message})
	e.refresh()
	return nil
}

// LoadRelativeLevel moves delta levels forward or back, clamped to the pack.
func (e *GameEngine) LoadRelativeLevel(delta int) error {
	target := max(1, min(e.state.Level+delta, e.levels.Count()))
	return e.LoadLevel(target)
}

// ToggleEditor switches editor mode and returns the new setting. Timers stand
// still while the editor is active.
func (e *GameEngine) ToggleEditor() bool {
	e.state.Editor = !e.state.Editor
	e.state.World.Paused = e.state.Editor
	if e.state.Editor {
		e.state.Message = "Editor on"
	} else {
		e.state.Message = "Editor off"
	}
	return e.state.Editor
}

// PlaceObject adds an object in editor mode.
func (e *GameEngine) PlaceObject(t level.ObjectType, p grid.Position, dir *grid.Direction) (*Object, error) {
	if !e.state.Editor {
		return nil, ErrEditorInactive
	}
	o, err := e.state.World.Spawn(t, p, dir)
	if err != nil {
		return nil, err
	}
	e.refresh()
	return o, nil
}

// EraseAt removes every object at p in editor mode.
func (e *GameEngine) EraseAt(p grid.Position) (int, error) {
	if !e.state.Editor {
		return 0, ErrEditorInactive
	}
	n := e.state.World.Erase(p)
	e.refresh()
	return n, nil
}

// Resize changes the grid size by (dw, dh) in editor mode.
func (e *GameEngine) Resize(dw, dh int) (grid.Dimensions, error) {
	if !e.state.Editor {
		return e.state.World.Dimensions, ErrEditorInactive
	}
	dims := e.state.World.Resize(dw, dh)
	e.refresh()
	return dims, nil
}

// SaveLevel writes the current world back to the level source and returns the
// saved text. Worlds without exactly one in-bounds player are refused.
func (e *GameEngine) SaveLevel() (string, error) {
	lvl := e.state.World.Level()
	if n := lvl.Count(level.Player); n != 1 {
		return "", fmt.Errorf("%w (found %d)", ErrSaveRefused, n)
	}

	text := level.Format(lvl)
	if err := e.levels.SaveLevelText(e.state.Level, text); err != nil {
		return "", fmt.Errorf("save level %d: %w", e.state.Level, err)
	}
	e.state.Message = fmt.Sprintf("Level %d saved", e.state.Level)
	e.log.Info("level saved", zap.Int("level", e.state.Level))
	return text, nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove executes moves in sequence and stops once the player is gone.
func (e *GameEngine) BulkMove(moves []grid.Direction) []bool {
	results := make([]bool, 0, len(moves))
	for _, d := range moves {
		if e.IsGameOver() || e.IsCompleted() {
			break
		}
		results = append(results, e.Move(d))
	}
	return results
}

func (e *GameEngine) handleOutcome(out Outcome) {
	e.events = append(e.events, out.Events...)

	switch {
	case out.Reload:
		e.log.Info("player lost, reloading level", zap.Int("level", e.state.Level))
		e.events = append(e.events, Event{Type: EventLevelReloaded})
		e.Reset()
		e.state.Message = fmt.Sprintf("Try again: level %d restarted", e.state.Level)
	case out.Advance:
		e.events = append(e.events, Event{Type: EventLevelComplete, Message: fmt.Sprintf("Level %d complete", e.state.Level)})
		if e.state.Level >= e.levels.Count() {
			e.state.Completed = true
			e.state.Message = "All levels complete!"
			e.events = append(e.events, Event{Type: EventGameComplete, Message: e.state.Message})
			break
		}
		if err := e.LoadLevel(e.state.Level + 1); err != nil {
			e.log.Error("advance failed", zap.Int("level", e.state.Level+1), zap.Error(err))
		}
	}
	e.refresh()
}

func (e *GameEngine) refresh() {
	w := e.state.World
	player := w.Player()
	e.state.GameOver = player == nil
	if player != nil {
		pos := player.Position
		e.state.PlayerPos = &pos
	} else {
		e.state.PlayerPos = nil
		if !e.state.Completed {
			e.state.Message = "You died. Reload the level to try again."
		}
	}
	e.state.Board = RenderBoard(w)
	e.state.LocalView = GenerateLocalView(w)
}

// addMoveToHistory adds a move to the cumulative history and the current segment
func (e *GameEngine) addMoveToHistory(action string, from, to grid.Position, levelNumber int, success bool) {
	entry := MoveHistoryEntry{
		Action:       action,
		FromPosition: from,
		ToPosition:   to,
		Level:        levelNumber,
		Timestamp:    time.Now().Unix(),
		Success:      success,
		MoveNumber:   e.state.TotalMoves + 1,
	}
	e.state.MoveHistory = append(e.state.MoveHistory, entry)
	e.state.TotalMoves++

	e.state.CurrentMoves = append(e.state.CurrentMoves, entry)
	e.state.CurrentMovesCount++
}
