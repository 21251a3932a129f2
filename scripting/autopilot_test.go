package scripting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/service"
	"go.uber.org/zap/zaptest"
)

// fakeDriver moves a player along a single row; reaching goalX completes
// the pack.
type fakeDriver struct {
	x, goalX int
	gameOver bool
	advanced []time.Duration
	resets   int

	moveErr error
}

func (f *fakeDriver) state() *engine.GameState {
	pos := grid.Position{X: f.x, Y: 1}
	return &engine.GameState{
		Level:      1,
		LevelCount: 1,
		PlayerPos:  &pos,
		GameOver:   f.gameOver,
		Completed:  f.x >= f.goalX,
		Board:      []string{"@...E"},
	}
}

func (f *fakeDriver) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return f.state(), nil
}

func (f *fakeDriver) Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	if direction != "Right" || f.gameOver {
		return &service.MoveResult{Success: false, GameState: f.state()}, nil
	}
	f.x++
	return &service.MoveResult{Success: true, GameState: f.state()}, nil
}

func (f *fakeDriver) Advance(ctx context.Context, sessionID string, d time.Duration) (*service.AdvanceResult, error) {
	f.advanced = append(f.advanced, d)
	return &service.AdvanceResult{GameState: f.state()}, nil
}

func (f *fakeDriver) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	f.resets++
	f.gameOver = false
	f.x = 1
	return f.state(), nil
}

func mustAutopilot(t *testing.T, source string) *Autopilot {
	t.Helper()
	a, err := NewAutopilot("test.lua", source, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewAutopilot: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in      string
		want    Intent
		wantErr bool
	}{
		{"up", Intent{Action: ActionMove, Direction: grid.Up}, false},
		{"Left", Intent{Action: ActionMove, Direction: grid.Left}, false},
		{" down ", Intent{Action: ActionMove, Direction: grid.Down}, false},
		{"wait", Intent{Action: ActionWait}, false},
		{"reload", Intent{Action: ActionReload}, false},
		{"reset", Intent{Action: ActionReload}, false},
		{"stop", Intent{Action: ActionStop}, false},
		{"", Intent{Action: ActionStop}, false},
		{"jump", Intent{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIntent(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIntent(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIntent(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewAutopilot_Errors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"syntax error", "function next_move(", "load test.lua"},
		{"missing entry point", "function other() return 'up' end", "next_move not found"},
		{"entry point not a function", "next_move = 'up'", "next_move not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAutopilot("test.lua", tt.source, zaptest.NewLogger(t))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected %q in error, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoadAutopilot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.lua")
	if err := os.WriteFile(path, []byte(`function next_move(s) return "right" end`), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := LoadAutopilot(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("LoadAutopilot: %v", err)
	}
	defer a.Close()

	intent, err := a.Next(context.Background(), (&fakeDriver{x: 1, goalX: 5}).state())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if intent.Action != ActionMove || intent.Direction != grid.Right {
		t.Errorf("Expected move Right, got %v", intent)
	}

	if _, err := LoadAutopilot(filepath.Join(t.TempDir(), "missing.lua"), nil); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestAutopilot_Next(t *testing.T) {
	state := (&fakeDriver{x: 1, goalX: 5}).state()

	tests := []struct {
		name    string
		source  string
		want    Intent
		wantErr bool
	}{
		{"direction", `function next_move(s) return "down" end`, Intent{Action: ActionMove, Direction: grid.Down}, false},
		{"nil stops", `function next_move(s) return nil end`, Intent{Action: ActionStop}, false},
		{"non string", `function next_move(s) return 42 end`, Intent{}, true},
		{"unknown word", `function next_move(s) return "fly" end`, Intent{}, true},
		{"runtime error", `function next_move(s) error("boom") end`, Intent{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustAutopilot(t, tt.source)
			got, err := a.Next(context.Background(), state)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Next() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil state", func(t *testing.T) {
		a := mustAutopilot(t, `function next_move(s) return "up" end`)
		if _, err := a.Next(context.Background(), nil); !errors.Is(err, engine.ErrNilState) {
			t.Errorf("Expected ErrNilState, got %v", err)
		}
	})
}

func TestAutopilot_StateTable(t *testing.T) {
	world := &engine.World{Dimensions: grid.Dimensions{Width: 3, Height: 2}, NextID: 1}
	world.Spawn(level.Player, grid.Position{X: 1, Y: 1}, nil)
	world.Spawn(level.Exit, grid.Position{X: 2, Y: 2}, nil)

	pos := grid.Position{X: 1, Y: 1}
	state := &engine.GameState{
		Level:      2,
		LevelCount: 4,
		World:      world,
		PlayerPos:  &pos,
		Board:      []string{"@..", ".E."},
		LocalView:  engine.GenerateLocalView(world),
	}

	a := mustAutopilot(t, `
function next_move(s)
  if s.level ~= 2 or s.level_count ~= 4 then return "up" end
  if s.width ~= 3 or s.height ~= 2 then return "up" end
  if s.board[2] ~= ".E." then return "up" end
  if not s.around.up.blocked then return "up" end
  local below = objects_at(s.player.x + 1, s.player.y + 1)
  if below[1] == "Exit" and not s.around.down.blocked then
    log("exit is diagonal, going down first")
    return "down"
  end
  return "stop"
end`)

	got, err := a.Next(context.Background(), state)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.Action != ActionMove || got.Direction != grid.Down {
		t.Errorf("Expected move Down, got %v", got)
	}
}

func TestAutopilot_Timeout(t *testing.T) {
	a := mustAutopilot(t, `function next_move(s) while true do end end`)
	a.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := a.Next(context.Background(), (&fakeDriver{x: 1, goalX: 5}).state())
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Timeout took too long: %v", time.Since(start))
	}
}

func TestAutopilot_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("walks to completion", func(t *testing.T) {
		a := mustAutopilot(t, `
function next_move(s)
  if s.game_over then return "reload" end
  return "right"
end`)
		d := &fakeDriver{x: 1, goalX: 4}
		var seen []Intent

		sum, err := a.Run(ctx, d, "ab12", RunOptions{
			OnStep: func(i Intent, _ *engine.GameState) { seen = append(seen, i) },
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !sum.Completed || sum.Reason != "completed" {
			t.Errorf("Expected completed run, got %+v", sum)
		}
		if sum.Steps != 3 || sum.Moves != 3 || len(seen) != 3 {
			t.Errorf("Expected 3 steps, got %+v (seen %d)", sum, len(seen))
		}
	})

	t.Run("reloads after death", func(t *testing.T) {
		a := mustAutopilot(t, `
function next_move(s)
  if s.game_over then return "reload" end
  return "stop"
end`)
		d := &fakeDriver{x: 2, goalX: 4, gameOver: true}

		sum, err := a.Run(ctx, d, "ab12", RunOptions{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if d.resets != 1 || sum.Reloads != 1 {
			t.Errorf("Expected one reload, got %d (%+v)", d.resets, sum)
		}
		if sum.Reason != "script stopped" {
			t.Errorf("Expected script stopped, got %q", sum.Reason)
		}
	})

	t.Run("step limit with waits", func(t *testing.T) {
		a := mustAutopilot(t, `function next_move(s) return "wait" end`)
		d := &fakeDriver{x: 1, goalX: 4}

		sum, err := a.Run(ctx, d, "ab12", RunOptions{MaxSteps: 3})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Waits != 3 || sum.Reason != "step limit" {
			t.Errorf("Expected 3 waits and step limit, got %+v", sum)
		}
		for _, got := range d.advanced {
			if got != 500*time.Millisecond {
				t.Errorf("Expected default wait of 500ms, got %v", got)
			}
		}
	})

	t.Run("blocked moves are counted", func(t *testing.T) {
		a := mustAutopilot(t, `function next_move(s) return "left" end`)
		d := &fakeDriver{x: 1, goalX: 4}

		sum, err := a.Run(ctx, d, "ab12", RunOptions{MaxSteps: 2})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Blocked != 2 {
			t.Errorf("Expected 2 blocked moves, got %+v", sum)
		}
	})

	t.Run("driver error", func(t *testing.T) {
		a := mustAutopilot(t, `function next_move(s) return "right" end`)
		d := &fakeDriver{x: 1, goalX: 4, moveErr: service.ErrSessionNotFound}

		_, err := a.Run(ctx, d, "ab12", RunOptions{})
		if !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		a := mustAutopilot(t, `function next_move(s) return "wait" end`)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		sum, err := a.Run(cctx, &fakeDriver{x: 1, goalX: 4}, "ab12", RunOptions{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Reason != "cancelled" || sum.Steps != 0 {
			t.Errorf("Expected cancelled run with no steps, got %+v", sum)
		}
	})
}
