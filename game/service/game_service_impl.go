package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"go.uber.org/zap"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
	log      *zap.Logger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, log *zap.Logger) GameService {
	if log == nil {
		log = zap.NewNop()
	}
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		log:      log,
	}
}

// CreateSession starts a session on levelNumber; 0 means the first level.
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelNumber int) (*SessionInfo, error) {
	if levelNumber == 0 {
		levelNumber = 1
	}
	if levelNumber < 0 {
		return nil, fmt.Errorf("%w: level %d", ErrInvalidInput, levelNumber)
	}
	if count := s.levels.Count(); levelNumber > count {
		return nil, fmt.Errorf("%w: level %d, the pack has %d levels", engine.ErrLevelNotFound, levelNumber, count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Create("", levelNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.Engine.DrainEvents()
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all sessions ordered by ID
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	slices.SortFunc(sessions, func(a, b *Session) int { return cmp.Compare(a.ID, b.ID) })

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	dir, err := parseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	eng := sess.Engine

	events := toGameEvents(eng.DrainEvents())
	if reset {
		eng.Reset()
		eng.DrainEvents()
		events = append(events, GameEvent{
			Type:      "reset",
			Message:   "Level reloaded",
			Timestamp: time.Now(),
		})
	}

	step, moveEvents, attempted := s.step(eng, 1, dir)
	events = append(events, moveEvents...)

	state := eng.GetState()
	result := &MoveResult{
		Success:     step.Success,
		GameState:   state.Clone(),
		Message:     state.Message,
		Events:      events,
		Step:        &step,
		AttemptedTo: attempted,
	}

	s.persist(sess)
	return result, nil
}

// BulkMove executes moves in sequence. It stops at the first blocked move and
// whenever the level changes under the player (death, reload or exit), since
// the remaining moves were planned for a board that no longer exists.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	dirs := make([]grid.Direction, len(moves))
	for i, m := range moves {
		d, err := parseDirection(m)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		dirs[i] = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	eng := sess.Engine

	result := &BulkMoveResult{
		Success:        true,
		RequestedMoves: len(moves),
		Steps:          []StepInfo{},
		Events:         toGameEvents(eng.DrainEvents()),
	}

	if reset {
		eng.Reset()
		eng.DrainEvents()
		result.Events = append(result.Events, GameEvent{
			Type:      "reset",
			Message:   "Level reloaded",
			Timestamp: time.Now(),
		})
	}

	if len(dirs) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		dirs = dirs[:engine.MaxBulkMoves]
	}

	result.StartLevel = eng.GetState().Level
	if p, ok := eng.GetPlayerPosition(); ok {
		result.StartPos = &p
	}

	for i, dir := range dirs {
		if eng.IsCompleted() {
			result.StoppedReason = "all levels complete"
			result.StopReasonCode = "completed"
			result.StoppedOnMove = i + 1
			break
		}
		if eng.IsGameOver() {
			result.StoppedReason = "no player on the board"
			result.StopReasonCode = "game_over"
			result.StoppedOnMove = i + 1
			break
		}

		step, events, attempted := s.step(eng, i+1, dir)
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, events...)

		if !step.Success {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, step.Dir)
			result.StopReasonCode = "blocked"
			if attempted != nil && !attempted.InBounds {
				result.StopReasonCode = "blocked_boundary"
			}
			result.StoppedOnMove = i + 1
			result.AttemptedTo = attempted
			break
		}
		result.MovesExecuted++

		if i == len(dirs)-1 {
			break
		}
		switch {
		case step.Reloaded:
			result.StoppedReason = "player lost, level restarted"
			result.StopReasonCode = "reloaded"
		case step.LevelCleared:
			result.StoppedReason = fmt.Sprintf("level %d complete", step.LevelBefore)
			result.StopReasonCode = "level_complete"
		default:
			continue
		}
		result.StoppedOnMove = i + 1
		break
	}

	state := eng.GetState()
	if p, ok := eng.GetPlayerPosition(); ok {
		result.EndPos = &p
	}
	result.EndLevel = state.Level
	result.GameOver = state.GameOver
	result.Completed = state.Completed
	result.Message = state.Message
	result.PossibleMoves = directionNames(eng.GetPossibleMoves())
	result.GameState = state.Clone()

	if result.StopReasonCode == "" {
		switch {
		case state.Completed:
			result.StopReasonCode = "completed"
		case state.GameOver:
			result.StopReasonCode = "game_over"
		}
	}

	s.persist(sess)
	return result, nil
}

// step runs one move and describes it. Failed moves also report the cell the
// player tried to enter.
func (s *gameServiceImpl) step(eng *engine.GameEngine, idx int, dir grid.Direction) (StepInfo, []GameEvent, *AttemptInfo) {
	from, hadPlayer := eng.GetPlayerPosition()
	levelBefore := eng.GetState().Level

	success := eng.Move(dir)
	raw := eng.DrainEvents()

	step := StepInfo{
		Idx:         idx,
		Dir:         strings.ToLower(dir.String()),
		From:        from,
		Success:     success,
		LevelBefore: levelBefore,
		LevelAfter:  eng.GetState().Level,
	}
	if p, ok := eng.GetPlayerPosition(); ok {
		step.To = &p
	}
	for _, ev := range raw {
		switch ev.Type {
		case engine.EventPlayerKilled:
			step.Died = true
		case engine.EventLevelReloaded:
			step.Died = true
			step.Reloaded = true
		case engine.EventLevelComplete:
			step.LevelCleared = true
		}
	}

	var attempted *AttemptInfo
	if !success && hadPlayer {
		attempted = attemptInfo(eng.GetState().World, from.Add(dir.Delta()))
	}
	return step, toGameEvents(raw), attempted
}

// Advance lets simulated time pass for one session. Requests longer than
// MaxAdvanceFrames frames are cut short.
func (s *gameServiceImpl) Advance(ctx context.Context, sessionID string, d time.Duration) (*AdvanceResult, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidInput, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	result := advance(sess, d)
	s.persist(sess)
	return result, nil
}

// AdvanceAll advances every in-memory session by d. It drives the server's
// real-time clock, so sessions are not persisted here.
func (s *gameServiceImpl) AdvanceAll(ctx context.Context, d time.Duration) ([]*AdvanceResult, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidInput, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	slices.SortFunc(sessions, func(a, b *Session) int { return cmp.Compare(a.ID, b.ID) })

	results := make([]*AdvanceResult, 0, len(sessions))
	for _, sess := range sessions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, advance(sess, d))
	}
	return results, nil
}

func advance(sess *Session, d time.Duration) *AdvanceResult {
	eng := sess.Engine
	result := &AdvanceResult{SessionID: sess.ID}

	limit := time.Duration(engine.MaxAdvanceFrames) * eng.Timing().Frame
	if limit > 0 && d > limit {
		d = limit
		result.Truncated = true
	}

	before := slices.Clone(eng.GetState().Board)
	result.Frames = eng.Advance(d)
	result.Elapsed = d
	raw := eng.DrainEvents()

	state := eng.GetState()
	result.Events = toGameEvents(raw)
	result.Changed = len(raw) > 0 || !slices.Equal(before, state.Board)
	result.GameState = state.Clone()
	return result
}

// Reset reloads the current level
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.Reset()
	sess.Engine.DrainEvents()
	s.persist(sess)
	return state.Clone(), nil
}

// ChangeLevel moves delta levels forward or back, clamped to the pack
func (s *gameServiceImpl) ChangeLevel(ctx context.Context, sessionID string, delta int) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.LoadRelativeLevel(delta); err != nil {
		return nil, err
	}
	sess.Engine.DrainEvents()
	s.persist(sess)
	return sess.Engine.GetState().Clone(), nil
}

// GetGameState retrieves a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState().Clone(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := max(1, (total+opts.Limit-1)/opts.Limit)
	start := min((opts.Page-1)*opts.Limit, total)
	end := min(start+opts.Limit, total)

	moves := make([]engine.MoveHistoryEntry, 0, end-start)
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ToggleEditor switches editor mode on or off
func (s *gameServiceImpl) ToggleEditor(ctx context.Context, sessionID string) (*EditorResult, error) {
	return s.edit(sessionID, func(eng *engine.GameEngine, r *EditorResult) error {
		r.Editor = eng.ToggleEditor()
		return nil
	})
}

// PlaceObject adds an object to the session's world in editor mode
func (s *gameServiceImpl) PlaceObject(ctx context.Context, sessionID, objectType string, x, y int, direction string) (*EditorResult, error) {
	t, ok := level.ParseObjectType(objectType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown object type %q (one of %v)", ErrInvalidInput, objectType, level.ObjectTypes)
	}
	var dir *grid.Direction
	if direction != "" {
		d, err := parseDirection(direction)
		if err != nil {
			return nil, err
		}
		dir = &d
	}

	return s.edit(sessionID, func(eng *engine.GameEngine, r *EditorResult) error {
		o, err := eng.PlaceObject(t, grid.Position{X: x, Y: y}, dir)
		if err != nil {
			return err
		}
		r.Object = o
		return nil
	})
}

// EraseCell removes every object at (x, y) in editor mode
func (s *gameServiceImpl) EraseCell(ctx context.Context, sessionID string, x, y int) (*EditorResult, error) {
	return s.edit(sessionID, func(eng *engine.GameEngine, r *EditorResult) error {
		n, err := eng.EraseAt(grid.Position{X: x, Y: y})
		r.Erased = n
		return err
	})
}

// ResizeGrid grows or shrinks the grid in editor mode
func (s *gameServiceImpl) ResizeGrid(ctx context.Context, sessionID string, dw, dh int) (*EditorResult, error) {
	return s.edit(sessionID, func(eng *engine.GameEngine, r *EditorResult) error {
		_, err := eng.Resize(dw, dh)
		return err
	})
}

// SaveLevel writes the session's world back to the level pack
func (s *gameServiceImpl) SaveLevel(ctx context.Context, sessionID string) (*EditorResult, error) {
	return s.edit(sessionID, func(eng *engine.GameEngine, r *EditorResult) error {
		text, err := eng.SaveLevel()
		r.Text = text
		return err
	})
}

func (s *gameServiceImpl) edit(sessionID string, fn func(*engine.GameEngine, *EditorResult) error) (*EditorResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	eng := sess.Engine
	result := &EditorResult{}
	if err := fn(eng, result); err != nil {
		return nil, err
	}
	eng.DrainEvents()

	state := eng.GetState()
	result.Editor = state.Editor
	result.Dimensions = state.World.Dimensions
	result.GameState = state.Clone()
	if result.Object != nil {
		result.Object = result.GameState.World.Object(result.Object.ID)
	}

	s.persist(sess)
	return result, nil
}

// ListLevels describes the level pack
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*levelstore.LevelInfo, error) {
	return s.levels.ListLevels(ctx)
}

// GetLevelText returns the text of one level
func (s *gameServiceImpl) GetLevelText(ctx context.Context, number int) (string, error) {
	if number < 1 {
		return "", fmt.Errorf("%w: level %d", ErrInvalidInput, number)
	}
	return s.levels.LevelText(number)
}

// SaveLevelText replaces or appends a level. Levels without exactly one
// player are refused.
func (s *gameServiceImpl) SaveLevelText(ctx context.Context, number int, text string) (*levelstore.LevelInfo, error) {
	if number < 1 {
		return nil, fmt.Errorf("%w: level %d", ErrInvalidInput, number)
	}

	info := levelstore.DescribeLevel(number, "", text)
	if info.Players != 1 {
		return nil, fmt.Errorf("%w (found %d)", engine.ErrSaveRefused, info.Players)
	}
	if err := s.levels.SaveLevelText(number, text); err != nil {
		return nil, err
	}
	s.log.Info("level text saved", zap.Int("level", number))
	return info, nil
}

// session looks a session up and marks it as used
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	s.sessions.UpdateLastAccessed(id)
	return sess, nil
}

func (s *gameServiceImpl) persist(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.log.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	state := sess.Engine.GetState()
	return &SessionInfo{
		ID:             sess.ID,
		Level:          state.Level,
		LevelCount:     state.LevelCount,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      state.Clone(),
	}
}

func parseDirection(s string) (grid.Direction, error) {
	d, ok := grid.ParseDirectionFold(s)
	if !ok {
		return grid.Up, fmt.Errorf("%w: direction %q (use up, down, left or right)", ErrInvalidInput, s)
	}
	return d, nil
}

func directionNames(dirs []grid.Direction) []string {
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = strings.ToLower(d.String())
	}
	return names
}

func attemptInfo(w *engine.World, p grid.Position) *AttemptInfo {
	info := &AttemptInfo{X: p.X, Y: p.Y, InBounds: w.Dimensions.Contains(p)}
	for _, o := range w.ObjectsAt(p) {
		info.Objects = append(info.Objects, o.Name())
	}
	return info
}

func toGameEvents(events []engine.Event) []GameEvent {
	now := time.Now()
	out := make([]GameEvent, 0, len(events))
	for _, ev := range events {
		ge := GameEvent{
			Type:      string(ev.Type),
			Message:   ev.Message,
			Timestamp: now,
			ObjectID:  ev.ObjectID,
			Object:    ev.Object,
		}
		if ev.Position != (grid.Position{}) {
			pos := ev.Position
			ge.Position = &pos
		}
		out = append(out, ge)
	}
	return out
}
