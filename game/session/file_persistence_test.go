package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/service"
	"go.uber.org/zap/zaptest"
)

const ballLevel = "[General]\nWidth=6\nHeight=3\n\n[BouncingBall]\nPosition=3,3\n\n[Exit]\nPosition=6,1\n\n[Player]\nPosition=1,1\n\n[RedBlock]\nPosition=6,3\n"

func newTestPersistence(t *testing.T, levels engine.LevelSource) (*FilePersistence, string) {
	t.Helper()
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir, levels, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return fp, dir
}

func TestFilePersistence(t *testing.T) {
	levels := &engine.StaticLevels{corridor, ballLevel}
	persistence, dir := newTestPersistence(t, levels)

	eng, err := engine.NewEngine(levels, 2)
	if err != nil {
		t.Fatal(err)
	}
	eng.Move(grid.Right)
	eng.Move(grid.Down)
	eng.Advance(700 * time.Millisecond)

	sess := newSession("Test1", eng)

	t.Run("save and load", func(t *testing.T) {
		if err := persistence.Save(sess); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "test1.json")); err != nil {
			t.Errorf("Expected lower-case file name: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ID != "Test1" {
			t.Errorf("Expected ID Test1, got %s", loaded.ID)
		}
		if !loaded.CreatedAt.Equal(sess.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, sess.CreatedAt)
		}

		want, got := eng.GetState(), loaded.Engine.GetState()
		if got.Level != 2 || got.TotalMoves != want.TotalMoves {
			t.Errorf("level/moves = %d/%d, want 2/%d", got.Level, got.TotalMoves, want.TotalMoves)
		}
		if !slices.Equal(got.Board, want.Board) {
			t.Errorf("board = %q, want %q", got.Board, want.Board)
		}
		if got.World.Clock != want.World.Clock || got.World.MovementTimer != want.World.MovementTimer {
			t.Errorf("clock/timer = %v/%+v, want %v/%+v",
				got.World.Clock, got.World.MovementTimer, want.World.Clock, want.World.MovementTimer)
		}
		if got.World.NextID != want.World.NextID {
			t.Errorf("NextID = %d, want %d", got.World.NextID, want.World.NextID)
		}

		ball := findType(got.World, level.BouncingBall)
		wantBall := findType(want.World, level.BouncingBall)
		if ball == nil || wantBall == nil {
			t.Fatal("ball missing")
		}
		if ball.Position != wantBall.Position || ball.Facing() != wantBall.Facing() || !ball.Deadly {
			t.Errorf("ball = %+v, want %+v", ball, wantBall)
		}
		if events := loaded.Engine.DrainEvents(); len(events) != 0 {
			t.Errorf("restored engine should start without events, got %v", events)
		}

		// The restored engine keeps simulating from where it stopped.
		loaded.Engine.Advance(time.Second)
		eng.Advance(time.Second)
		if !slices.Equal(loaded.Engine.GetState().Board, eng.GetState().Board) {
			t.Error("restored world diverged from the original")
		}
	})

	t.Run("list", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ids, []string{"test1"}) {
			t.Errorf("ListAll() = %v", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := persistence.Delete("test1"); err != nil {
			t.Fatal(err)
		}
		if persistence.Exists("test1") {
			t.Error("Session file should be gone")
		}
		if err := persistence.Delete("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("missing and invalid", func(t *testing.T) {
		if _, err := persistence.Load("nothere"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := persistence.Load("../../etc/passwd"); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := persistence.Load("bad"); err == nil {
			t.Error("Expected an error for a corrupt file")
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	levels := &engine.StaticLevels{corridor}
	persistence, dir := newTestPersistence(t, levels)

	eng, _ := engine.NewEngine(levels, 1)
	sess := newSession("layout", eng)
	if err := persistence.Save(sess); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "layout.json"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("session file is not JSON: %v", err)
	}
	for _, key := range []string{"id", "created_at", "last_accessed_at", "game_state"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	state := raw["game_state"].(map[string]any)
	world := state["world"].(map[string]any)
	if _, ok := world["objects"]; !ok {
		t.Error("world objects not persisted")
	}
}

func TestManagerWithPersistence(t *testing.T) {
	levels := &engine.StaticLevels{corridor, corridor}
	persistence, _ := newTestPersistence(t, levels)
	manager := NewManagerWithPersistence(levels, persistence, zaptest.NewLogger(t))

	session, err := manager.Create("auto1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !persistence.Exists("auto1") {
		t.Error("Session should be saved on creation")
	}

	session.Engine.Move(grid.Right)
	if err := manager.Save("auto1"); err != nil {
		t.Fatal(err)
	}

	t.Run("get loads from persistence", func(t *testing.T) {
		fresh := NewManagerWithPersistence(levels, persistence, nil)
		got, err := fresh.Get("AUTO1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		pos, _ := got.Engine.GetPlayerPosition()
		if pos.X != 2 || got.Engine.GetState().Level != 2 {
			t.Errorf("restored pos %v level %d", pos, got.Engine.GetState().Level)
		}
	})

	t.Run("load all", func(t *testing.T) {
		manager.Create("auto2", 1)
		fresh := NewManagerWithPersistence(levels, persistence, nil)
		if err := fresh.LoadPersistedSessions(); err != nil {
			t.Fatal(err)
		}
		if fresh.Count() != 2 {
			t.Errorf("Expected 2 sessions, got %d", fresh.Count())
		}
	})

	t.Run("save all", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Errorf("SaveAllSessions: %v", err)
		}
	})

	t.Run("delete removes the file", func(t *testing.T) {
		if err := manager.Delete("auto1"); err != nil {
			t.Fatal(err)
		}
		if persistence.Exists("auto1") {
			t.Error("Expected persisted copy to be deleted")
		}
	})

	t.Run("cleanup keeps files", func(t *testing.T) {
		s, _ := manager.Get("auto2")
		s.LastAccessedAt = time.Now().Add(-time.Hour)
		manager.CleanupExpiredSessions(time.Minute)
		if !persistence.Exists("auto2") {
			t.Error("Expected persisted copy to survive cleanup")
		}
		if _, err := manager.Get("auto2"); err != nil {
			t.Errorf("Expected session to come back from disk: %v", err)
		}
	})
}

func newSession(id string, eng *engine.GameEngine) *service.Session {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &service.Session{ID: id, Engine: eng, CreatedAt: created, LastAccessedAt: created}
}

func findType(w *engine.World, t level.ObjectType) *engine.Object {
	for _, o := range w.Objects {
		if o.Type == t {
			return o
		}
	}
	return nil
}
