package engine

import (
	"testing"
	"time"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
)

func TestDeadlyContactLeavesGrave(t *testing.T) {
	w := worldFrom(t, levelText(3, 1, "[BouncingBall]\nDirection=Left\nPosition=2,1", "[Player]\nPosition=1,1"))

	w.movementTick()
	var out Outcome
	w.runInteractionRules(&out)

	if w.Player() != nil {
		t.Fatal("player should be removed")
	}
	if len(all(w, level.BouncingBall)) != 0 {
		t.Error("deadly object should be removed with the player")
	}
	graves := effects(w, Grave)
	if len(graves) != 1 || graves[0].Position != pos(1, 1) {
		t.Errorf("graves = %+v", graves)
	}
	if out.Reload || out.Advance {
		t.Errorf("deadly contact should not reload or advance: %+v", out)
	}
}

func TestExitAdvances(t *testing.T) {
	w := worldFrom(t, levelText(2, 1, "[Exit]\nPosition=2,1", "[Player]\nPosition=1,1"))
	out := w.Step(ptr(grid.Right), 0)
	if !out.Advance {
		t.Error("reaching the exit should advance")
	}
}

func TestExitIgnoredWhenPlayerDies(t *testing.T) {
	w := worldFrom(t, levelText(2, 1, "[Exit]\nPosition=2,1", "[Mine]\nPosition=2,1", "[Player]\nPosition=1,1"))
	out := w.Step(ptr(grid.Right), 0)
	if out.Advance {
		t.Error("exit must not be granted on the tick the player is removed")
	}
	if !out.Reload {
		t.Error("exploding player should reload")
	}
}

func TestExplosive(t *testing.T) {
	t.Run("block triggers mine", func(t *testing.T) {
		w := worldFrom(t, levelText(4, 1, "[BlueBlock]\nPosition=2,1", "[Mine]\nPosition=3,1", "[Player]\nPosition=1,1"))
		out := w.Step(ptr(grid.Right), 0)

		if out.Reload {
			t.Error("block explosion should not reload")
		}
		if len(all(w, level.BlueBlock)) != 0 || len(all(w, level.Mine)) != 0 {
			t.Error("block and mine should both be removed")
		}
		if ex := effects(w, Explosion); len(ex) != 1 || ex[0].Position != pos(3, 1) {
			t.Errorf("explosions = %+v", ex)
		}
		if w.Player().Position != pos(2, 1) {
			t.Errorf("player at %v", w.Player().Position)
		}
	})

	t.Run("player triggers mine", func(t *testing.T) {
		w := worldFrom(t, levelText(2, 1, "[Mine]\nPosition=2,1", "[Player]\nPosition=1,1"))
		out := w.Step(ptr(grid.Right), 0)
		if !out.Reload {
			t.Error("player explosion should reload")
		}
		if w.Player() != nil {
			t.Error("player should be removed")
		}
	})

	t.Run("mines do not set each other off", func(t *testing.T) {
		w := worldFrom(t, levelText(2, 1, "[Mine]\nPosition=2,1;2,1", "[Player]\nPosition=1,1"))
		w.Step(nil, 0)
		if len(all(w, level.Mine)) != 2 {
			t.Error("stacked mines should stay")
		}
	})
}

func TestLiquid(t *testing.T) {
	t.Run("player drowns", func(t *testing.T) {
		w := worldFrom(t, levelText(2, 1, "[Player]\nPosition=1,1", "[Water]\nPosition=2,1"))
		out := w.Step(ptr(grid.Right), 0)
		if !out.Reload {
			t.Error("drowning should reload")
		}
		if sp := effects(w, Splash); len(sp) != 1 || sp[0].Position != pos(2, 1) {
			t.Errorf("splashes = %+v", sp)
		}
	})

	t.Run("block sinks", func(t *testing.T) {
		w := worldFrom(t, levelText(3, 1, "[BlueBlock]\nPosition=2,1", "[Player]\nPosition=1,1", "[Water]\nPosition=3,1"))
		out := w.Step(ptr(grid.Right), 0)
		if out.Reload {
			t.Error("sinking a block should not reload")
		}
		if len(all(w, level.BlueBlock)) != 0 {
			t.Error("block should sink")
		}
		if len(all(w, level.Water)) != 1 {
			t.Error("water stays")
		}
	})

	t.Run("raft docks and carries the player", func(t *testing.T) {
		w := worldFrom(t, levelText(4, 1, "[Player]\nPosition=1,1", "[Raft]\nPosition=2,1", "[Water]\nPosition=3,1"))
		raft := first(t, w, level.Raft)

		w.Step(ptr(grid.Right), 0)
		if raft.Position != pos(3, 1) {
			t.Fatalf("raft at %v", raft.Position)
		}
		if raft.Pushable {
			t.Error("raft on water should lose Pushable")
		}

		out := w.Step(ptr(grid.Right), 0)
		if out.Reload || w.Player() == nil || w.Player().Position != pos(3, 1) {
			t.Errorf("player should stand on the raft: %+v", out)
		}
		if raft.Position != pos(3, 1) {
			t.Error("docked raft must not be pushed")
		}
	})

	t.Run("two rafts on one cell stay pushable", func(t *testing.T) {
		w := worldFrom(t, levelText(2, 1, "[Player]\nPosition=1,1", "[Raft]\nPosition=2,1;2,1", "[Water]\nPosition=2,1"))
		w.Step(nil, 0)
		for _, r := range all(w, level.Raft) {
			if !r.Pushable {
				t.Error("raft sharing its cell with another raft should keep Pushable")
			}
		}
	})
}

func TestTriggersOpenAndCloseGates(t *testing.T) {
	w := worldFrom(t, levelText(5, 2,
		"[BlueBlock]\nPosition=2,1",
		"[Button]\nPosition=3,1;1,2",
		"[Gate]\nPosition=5,2",
		"[Player]\nPosition=1,1",
	))
	gate := first(t, w, level.Gate)
	if !gate.Massive || gate.Frame != 0 {
		t.Fatal("gate starts closed")
	}

	steps := []struct {
		move        grid.Direction
		wantPressed int
		wantOpen    bool
	}{
		{grid.Right, 1, true},  // block onto the first button
		{grid.Down, 1, true},   // unchanged count leaves the gate alone
		{grid.Left, 2, true},   // player onto the second button
		{grid.Right, 1, false}, // count drops, every gate closes
	}
	for i, s := range steps {
		w.Step(ptr(s.move), 0)
		open := !gate.Massive && gate.Frame == 1
		if w.PressedTriggers != s.wantPressed || open != s.wantOpen {
			t.Fatalf("step %d (%v): pressed=%d open=%v, want pressed=%d open=%v",
				i+1, s.move, w.PressedTriggers, open, s.wantPressed, s.wantOpen)
		}
	}
}

func TestVolatilesExpire(t *testing.T) {
	w := worldFrom(t, levelText(2, 1, "[Player]\nPosition=1,1", "[Water]\nPosition=2,1"))
	w.Step(ptr(grid.Right), 0)
	if len(effects(w, Splash)) != 1 {
		t.Fatal("expected a splash")
	}

	w.Paused = true
	w.Step(nil, time.Second)
	if len(effects(w, Splash)) != 1 {
		t.Fatal("effects must not expire while paused")
	}

	w.Paused = false
	w.Step(nil, 400*time.Millisecond)
	if len(effects(w, Splash)) != 1 {
		t.Fatal("splash expired early")
	}
	w.Step(nil, 100*time.Millisecond)
	if len(effects(w, Splash)) != 0 {
		t.Error("splash should expire after its lifetime")
	}
}

func TestEffectsAreIgnoredByRules(t *testing.T) {
	w := worldFrom(t, levelText(2, 1, "[Player]\nPosition=1,1", "[Button]\nPosition=2,1", "[Gate]\nPosition=1,1"))
	w.spawnEffect(Grave, pos(2, 1))
	w.Step(nil, 0)
	if w.PressedTriggers != 0 {
		t.Error("an effect must not press a button")
	}
}

func TestMovementTimer(t *testing.T) {
	w := worldFrom(t, levelText(3, 1, "[BouncingBall]\nDirection=Right\nPosition=1,1"))
	ball := first(t, w, level.BouncingBall)

	for i := 0; i < 4; i++ {
		w.Step(nil, 100*time.Millisecond)
	}
	if ball.Position != pos(1, 1) {
		t.Fatal("ball moved before the movement period elapsed")
	}
	w.Step(nil, 100*time.Millisecond)
	if ball.Position != pos(2, 1) {
		t.Errorf("ball at %v after 500ms, want 2,1", ball.Position)
	}
}

func TestTraitsValidate(t *testing.T) {
	tests := []struct {
		name    string
		traits  Traits
		wantErr bool
	}{
		{"plain", Traits{Massive: true}, false},
		{"explosive and deadly", Traits{Explosive: true, Deadly: true}, true},
		{"liquid and deadly", Traits{Liquid: true, Deadly: true}, true},
		{"heavy scenery", Traits{Weight: Heavy}, true},
		{"heavy pushable", Traits{Pushable: true, Weight: Heavy}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.traits.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func ptr(d grid.Direction) *grid.Direction {
	return &d
}
