package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"go.uber.org/zap/zaptest"
)

const corridor = "[General]\nWidth=5\nHeight=1\n\n[Exit]\nPosition=5,1\n\n[Player]\nPosition=1,1\n"

func createTestLevels() *engine.StaticLevels {
	return &engine.StaticLevels{corridor, corridor}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(createTestLevels(), zaptest.NewLogger(t))
}

func TestManager_Create(t *testing.T) {
	manager := newTestManager(t)

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", 1)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Fatal("Expected engine to be initialized")
		}
		if session.Engine.GetState().Level != 1 {
			t.Errorf("Expected level 1, got %d", session.Engine.GetState().Level)
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", 2)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %q", session.ID)
		}
		if session.Engine.GetState().Level != 2 {
			t.Errorf("Expected level 2, got %d", session.Engine.GetState().Level)
		}
	})

	t.Run("duplicate ID is case-insensitive", func(t *testing.T) {
		if _, err := manager.Create("TEST-SESSION", 1); !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("level below range starts at level 1", func(t *testing.T) {
		session, err := manager.Create("zero", 0)
		if err != nil {
			t.Fatal(err)
		}
		if session.Engine.GetState().Level != 1 {
			t.Errorf("Expected level 1, got %d", session.Engine.GetState().Level)
		}
	})

	t.Run("level above range fails", func(t *testing.T) {
		if _, err := manager.Create("far", 9); !errors.Is(err, engine.ErrLevelNotFound) {
			t.Errorf("Expected ErrLevelNotFound, got %v", err)
		}
	})

	t.Run("unsafe ID", func(t *testing.T) {
		if _, err := manager.Create("../etc", 1); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})
}

func TestManager_GetAndDelete(t *testing.T) {
	manager := newTestManager(t)
	created, err := manager.Create("Mixed", 1)
	if err != nil {
		t.Fatal(err)
	}

	got, err := manager.Get("mixed")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != created {
		t.Error("Expected the same session instance")
	}

	if _, err := manager.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	if err := manager.Delete("MIXED"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected 0 sessions, got %d", manager.Count())
	}
	if err := manager.Delete("mixed"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.GetOrCreate("abc", 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := manager.GetOrCreate("abc", 1)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if second.Engine.GetState().Level != 2 {
		t.Errorf("Expected the original level 2, got %d", second.Engine.GetState().Level)
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := newTestManager(t)

	old, _ := manager.Create("old", 1)
	manager.Create("fresh", 1)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be gone")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to remain: %v", err)
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := newTestManager(t)
	session, _ := manager.Create("touch", 1)
	before := time.Now().Add(-time.Minute)
	session.LastAccessedAt = before

	if err := manager.UpdateLastAccessed("touch"); err != nil {
		t.Fatal(err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected LastAccessedAt to move forward")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := newTestManager(t)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i%10)
			if _, err := manager.Create(id, 1); err != nil && !errors.Is(err, ErrSessionAlreadyExists) {
				errs <- err
			}
			if _, err := manager.Get(id); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 10 {
		t.Errorf("Expected 10 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := newTestManager(t)

	session1, _ := manager.Create("iso-1", 1)
	session2, _ := manager.Create("iso-2", 1)

	session1.Engine.Move(grid.Right)

	p1, _ := session1.Engine.GetPlayerPosition()
	p2, _ := session2.Engine.GetPlayerPosition()
	if p1.X != 2 || p2.X != 1 {
		t.Errorf("Expected independent worlds, got %v and %v", p1, p2)
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := newTestManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", 1)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if seen[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		seen[session.ID] = true
	}
}

func TestValidID(t *testing.T) {
	tests := map[string]bool{
		"a1b2":      true,
		"my_game-1": true,
		"":          false,
		"../x":      false,
		"a b":       false,
		"x.json":    false,
	}
	for id, want := range tests {
		if got := validID(id); got != want {
			t.Errorf("validID(%q) = %v, want %v", id, got, want)
		}
	}
}
