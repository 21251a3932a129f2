package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"go.uber.org/zap"
)

// ErrLevelNotFound is the engine's sentinel so callers of either package can
// match it with errors.Is.
var ErrLevelNotFound = engine.ErrLevelNotFound

// storeTimeout bounds one store round trip made on behalf of the engine, which
// has no context of its own.
const storeTimeout = 5 * time.Second

// fallbackLevel is served when the store holds no levels at all.
const fallbackLevel = `[General]
Width=5
Height=3

[Player]
Position=1,2

[Exit]
Position=5,2
`

// Manager serves a level pack to game engines. Every LevelText call re-reads
// the store so edits show up on the next (re)load; when a read fails the last
// text that was read successfully is served instead.
type Manager struct {
	store    levelstore.Store
	log      *zap.Logger
	infos    []levelstore.Info
	lastGood map[int]string
	fallback bool
	mu       sync.RWMutex
}

// NewManager creates a level manager over store and reads its level list.
func NewManager(ctx context.Context, store levelstore.Store, log *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("level store is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	m := &Manager{
		store:    store,
		log:      log,
		lastGood: make(map[int]string),
	}
	if err := m.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	return m, nil
}

// Refresh re-reads the level list from the store.
func (m *Manager) Refresh(ctx context.Context) error {
	infos, err := m.store.List(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = infos
	m.fallback = len(infos) == 0
	if m.fallback {
		m.log.Warn("level store is empty, serving the built-in level")
	}
	return nil
}

// Count returns the number of levels in the pack.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fallback {
		return 1
	}
	return len(m.infos)
}

// LevelText reads level number from the store.
func (m *Manager) LevelText(number int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return m.GetLevelText(ctx, number)
}

// GetLevelText is LevelText with a caller-supplied context.
func (m *Manager) GetLevelText(ctx context.Context, number int) (string, error) {
	m.mu.RLock()
	fallback := m.fallback
	m.mu.RUnlock()
	if fallback {
		if number != 1 {
			return "", fmt.Errorf("%w: %d", ErrLevelNotFound, number)
		}
		return fallbackLevel, nil
	}

	text, err := m.store.Read(ctx, number)
	if err == nil {
		m.mu.Lock()
		m.lastGood[number] = text
		m.mu.Unlock()
		return text, nil
	}

	m.mu.RLock()
	cached, ok := m.lastGood[number]
	m.mu.RUnlock()
	if ok {
		m.log.Warn("level reload failed, using last good copy", zap.Int("level", number), zap.Error(err))
		return cached, nil
	}

	if errors.Is(err, levelstore.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", ErrLevelNotFound, err)
	}
	return "", fmt.Errorf("failed to read level %d: %w", number, err)
}

// SaveLevelText writes level number back to the store. A number one past the
// last level appends a new level.
func (m *Manager) SaveLevelText(number int, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := m.store.Write(ctx, number, text); err != nil {
		if errors.Is(err, levelstore.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrLevelNotFound, err)
		}
		return err
	}

	m.mu.Lock()
	m.lastGood[number] = text
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		m.log.Warn("failed to refresh level list after save", zap.Error(err))
	}
	return nil
}

// ListLevels describes every level of the pack. A level that cannot be read
// is listed with its error rather than failing the whole listing.
func (m *Manager) ListLevels(ctx context.Context) ([]*levelstore.LevelInfo, error) {
	if err := m.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}

	m.mu.RLock()
	infos := m.infos
	fallback := m.fallback
	m.mu.RUnlock()

	if fallback {
		return []*levelstore.LevelInfo{levelstore.DescribeLevel(1, "built-in", fallbackLevel)}, nil
	}

	levels := make([]*levelstore.LevelInfo, 0, len(infos))
	for _, info := range infos {
		text, err := m.GetLevelText(ctx, info.Number)
		if err != nil {
			levels = append(levels, &levelstore.LevelInfo{Number: info.Number, Name: info.Name, Error: err.Error()})
			continue
		}
		levels = append(levels, levelstore.DescribeLevel(info.Number, info.Name, text))
	}
	return levels, nil
}
