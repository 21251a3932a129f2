package engine

import (
	"testing"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
)

func TestAttemptMove_Push(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		direction  grid.Direction
		wantMoved  bool
		wantPlayer grid.Position
		wantBlocks map[level.ObjectType][]grid.Position
	}{
		{
			name:       "push blocked by massive wall",
			text:       levelText(3, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1", "[RedBlock]\nPosition=3,1"),
			direction:  grid.Right,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(2, 1)}},
		},
		{
			name:       "push into free cell",
			text:       levelText(3, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(3, 1)}},
		},
		{
			name:       "push against grid edge",
			text:       levelText(2, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1"),
			direction:  grid.Right,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(2, 1)}},
		},
		{
			name:       "chain of three in open space",
			text:       levelText(5, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1;3,1;4,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(3, 1), pos(4, 1), pos(5, 1)}},
		},
		{
			name:       "chain of three against a wall",
			text:       levelText(5, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1;3,1;4,1", "[RedBlock]\nPosition=5,1"),
			direction:  grid.Right,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(2, 1), pos(3, 1), pos(4, 1)}},
		},
		{
			name:       "vertical chain upwards",
			text:       levelText(1, 4, "[Player]\nPosition=1,4", "[BlueBlock]\nPosition=1,3;1,2"),
			direction:  grid.Up,
			wantMoved:  true,
			wantPlayer: pos(1, 3),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(1, 2), pos(1, 1)}},
		},
		{
			name:       "player pushes heavy block",
			text:       levelText(3, 1, "[Player]\nPosition=1,1", "[PurpleBlock]\nPosition=2,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.PurpleBlock: {pos(3, 1)}},
		},
		{
			name:       "light block cannot push heavy block",
			text:       levelText(4, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1", "[PurpleBlock]\nPosition=3,1"),
			direction:  grid.Right,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(2, 1)}, level.PurpleBlock: {pos(3, 1)}},
		},
		{
			name:       "heavy block pushes light block",
			text:       levelText(4, 1, "[Player]\nPosition=1,1", "[PurpleBlock]\nPosition=2,1", "[BlueBlock]\nPosition=3,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.PurpleBlock: {pos(3, 1)}, level.BlueBlock: {pos(4, 1)}},
		},
		{
			name:       "yellow block refuses to be pushed into",
			text:       levelText(4, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1", "[YellowBlock]\nPosition=3,1"),
			direction:  grid.Right,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(2, 1)}, level.YellowBlock: {pos(3, 1)}},
		},
		{
			name:       "yellow block itself can be pushed",
			text:       levelText(3, 1, "[Player]\nPosition=1,1", "[YellowBlock]\nPosition=2,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.YellowBlock: {pos(3, 1)}},
		},
		{
			name:       "stuck raft is walked onto",
			text:       levelText(2, 1, "[Player]\nPosition=1,1", "[Raft]\nPosition=2,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.Raft: {pos(2, 1)}},
		},
		{
			name:       "raft blocks a push behind it",
			text:       levelText(3, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1", "[Raft]\nPosition=3,1"),
			direction:  grid.Right,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
			wantBlocks: map[level.ObjectType][]grid.Position{level.BlueBlock: {pos(2, 1)}, level.Raft: {pos(3, 1)}},
		},
		{
			name:       "non-solid objects do not block",
			text:       levelText(3, 1, "[Player]\nPosition=1,1", "[Button]\nPosition=2,1", "[Exit]\nPosition=3,1"),
			direction:  grid.Right,
			wantMoved:  true,
			wantPlayer: pos(2, 1),
		},
		{
			name:       "grid edge",
			text:       levelText(3, 1, "[Player]\nPosition=1,1"),
			direction:  grid.Left,
			wantMoved:  false,
			wantPlayer: pos(1, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := worldFrom(t, tt.text)

			if got := movePlayer(w, tt.direction); got != tt.wantMoved {
				t.Errorf("moved = %v, want %v", got, tt.wantMoved)
			}
			if got := w.Player().Position; got != tt.wantPlayer {
				t.Errorf("player at %v, want %v", got, tt.wantPlayer)
			}
			for typ, want := range tt.wantBlocks {
				objs := all(w, typ)
				if len(objs) != len(want) {
					t.Fatalf("%s count = %d, want %d", typ, len(objs), len(want))
				}
				for i, o := range objs {
					if o.Position != want[i] {
						t.Errorf("%s #%d at %v, want %v", typ, i, o.Position, want[i])
					}
				}
			}
		})
	}
}

func TestAttemptMove_NoPushWhenDisabled(t *testing.T) {
	w := worldFrom(t, levelText(3, 1, "[Player]\nPosition=1,1", "[BlueBlock]\nPosition=2,1"))
	p := w.Player()
	if AttemptMove(p, grid.Right.Delta(), w.Dimensions, w.others(p, notEffect), false) {
		t.Fatal("move should fail when pushing is disabled")
	}
	if first(t, w, level.BlueBlock).Position != pos(2, 1) {
		t.Error("block moved without push permission")
	}
}

func TestAttemptMove_NeverLeavesGrid(t *testing.T) {
	w := worldFrom(t, levelText(2, 2, "[Player]\nPosition=1,1"))
	for i := 0; i < 10; i++ {
		for _, d := range grid.Directions {
			movePlayer(w, d)
			if !w.Dimensions.Contains(w.Player().Position) {
				t.Fatalf("player left the grid: %v", w.Player().Position)
			}
		}
	}
}

func TestAttemptMove_TransporterBlocking(t *testing.T) {
	w := worldFrom(t, levelText(3, 2, "[Player]\nPosition=2,2", "[Transporter]\nDirection=Up\nPosition=2,1"))
	tr := first(t, w, level.Transporter)

	if tr.BlocksMovement != BlocksDisabled {
		t.Fatalf("transporter starts %q, want disabled", tr.BlocksMovement)
	}
	if !movePlayer(w, grid.Up) {
		t.Fatal("player should step onto the transporter")
	}
	if tr.BlocksMovement != BlocksEnabled {
		t.Errorf("transporter = %q after entry, want enabled", tr.BlocksMovement)
	}
	if movePlayer(w, grid.Down) {
		t.Error("player should be held while the transporter is enabled")
	}

	// Conveying up leaves the grid, so the transporter gives up and lets go.
	events := w.transporterTick()
	if tr.BlocksMovement != BlocksDisabled {
		t.Errorf("transporter = %q after failed conveyance, want disabled", tr.BlocksMovement)
	}
	if len(events) != 1 || events[0].Type != EventTransporterStuck {
		t.Errorf("events = %+v", events)
	}
	if !movePlayer(w, grid.Down) {
		t.Error("player should be free once the transporter is disabled")
	}
}

func TestAttemptMove_TransporterBlockingAfterPush(t *testing.T) {
	w := worldFrom(t, levelText(4, 1,
		"[BlueBlock]\nPosition=2,1",
		"[Player]\nPosition=1,1",
		"[Transporter]\nDirection=Up\nPosition=2,1",
	))
	tr := first(t, w, level.Transporter)
	block := first(t, w, level.BlueBlock)

	if !movePlayer(w, grid.Right) {
		t.Fatal("player should push the block off the transporter and step on")
	}
	if block.Position != pos(3, 1) {
		t.Fatalf("block at %v, want 3,1", block.Position)
	}
	if tr.BlocksMovement != BlocksEnabled {
		t.Errorf("transporter = %q after entry behind a pushed block, want enabled", tr.BlocksMovement)
	}
	if movePlayer(w, grid.Left) {
		t.Error("player should be held while the transporter is enabled")
	}
}

func TestTransporterTick(t *testing.T) {
	w := worldFrom(t, levelText(4, 1,
		"[BlueBlock]\nPosition=1,1",
		"[Player]\nPosition=4,1",
		"[Transporter]\nDirection=Right\nPosition=1,1;2,1",
	))
	block := first(t, w, level.BlueBlock)

	w.transporterTick()
	if block.Position != pos(2, 1) {
		t.Fatalf("after first tick block at %v, want 2,1 (conveyed once per tick)", block.Position)
	}

	w.transporterTick()
	if block.Position != pos(3, 1) {
		t.Fatalf("after second tick block at %v, want 3,1", block.Position)
	}

	w.transporterTick()
	if block.Position != pos(3, 1) {
		t.Errorf("block left the belt: %v", block.Position)
	}
}

func TestTransporterDoesNotPush(t *testing.T) {
	w := worldFrom(t, levelText(3, 1,
		"[BlueBlock]\nPosition=1,1;2,1",
		"[Player]\nPosition=3,1",
		"[Transporter]\nDirection=Right\nPosition=1,1",
	))
	w.transporterTick()
	blocks := all(w, level.BlueBlock)
	if blocks[0].Position != pos(1, 1) || blocks[1].Position != pos(2, 1) {
		t.Errorf("blocks moved: %v %v", blocks[0].Position, blocks[1].Position)
	}
}

func TestMovementTick_Bounce(t *testing.T) {
	w := worldFrom(t, levelText(3, 1, "[BouncingBall]\nDirection=Right\nPosition=1,1"))
	ball := first(t, w, level.BouncingBall)

	want := []struct {
		pos    grid.Position
		facing grid.Direction
	}{
		{pos(2, 1), grid.Right},
		{pos(3, 1), grid.Right},
		{pos(3, 1), grid.Left},
		{pos(2, 1), grid.Left},
		{pos(1, 1), grid.Left},
		{pos(1, 1), grid.Right},
	}
	for i, step := range want {
		w.movementTick()
		if ball.Position != step.pos || ball.Facing() != step.facing {
			t.Fatalf("tick %d: ball at %v facing %v, want %v facing %v", i+1, ball.Position, ball.Facing(), step.pos, step.facing)
		}
	}
}

func TestMovementTick_BounceOffBlockWithoutPushing(t *testing.T) {
	w := worldFrom(t, levelText(3, 1, "[BlueBlock]\nPosition=2,1", "[BouncingBall]\nDirection=Right\nPosition=1,1"))
	w.movementTick()

	ball := first(t, w, level.BouncingBall)
	if ball.Position != pos(1, 1) || ball.Facing() != grid.Left {
		t.Errorf("ball at %v facing %v", ball.Position, ball.Facing())
	}
	if first(t, w, level.BlueBlock).Position != pos(2, 1) {
		t.Error("ball pushed the block")
	}
}

func TestMovementTick_FollowRightHandLoop(t *testing.T) {
	w := worldFrom(t, levelText(3, 3, "[Creature1]\nDirection=Left\nPosition=1,1", "[RedBlock]\nPosition=2,2"))
	c := first(t, w, level.Creature1)

	want := []struct {
		pos    grid.Position
		facing grid.Direction
	}{
		{pos(1, 1), grid.Down},
		{pos(1, 2), grid.Down},
		{pos(1, 3), grid.Down},
		{pos(1, 3), grid.Right},
		{pos(2, 3), grid.Right},
		{pos(3, 3), grid.Right},
		{pos(3, 3), grid.Up},
		{pos(3, 2), grid.Up},
		{pos(3, 1), grid.Up},
		{pos(3, 1), grid.Left},
		{pos(2, 1), grid.Left},
		{pos(1, 1), grid.Left},
	}
	for i, step := range want {
		w.movementTick()
		if c.Position != step.pos || c.Facing() != step.facing {
			t.Fatalf("tick %d: creature at %v facing %v, want %v facing %v", i+1, c.Position, c.Facing(), step.pos, step.facing)
		}
	}
}

func TestMovementTick_FollowRightHandTurnsIntoOpening(t *testing.T) {
	w := worldFrom(t, levelText(3, 3, "[Creature1]\nDirection=Up\nPosition=2,2"))
	c := first(t, w, level.Creature1)
	w.movementTick()
	if c.Position != pos(3, 2) || c.Facing() != grid.Right {
		t.Errorf("creature at %v facing %v, want 3,2 facing Right", c.Position, c.Facing())
	}
}

func TestMovementTick_MoversIgnoreEachOther(t *testing.T) {
	w := worldFrom(t, levelText(3, 1, "[BouncingBall]\nDirection=Right\nPosition=1,1\nDirection=Left\nPosition=2,1"))
	balls := all(w, level.BouncingBall)
	w.movementTick()
	if balls[0].Position != pos(2, 1) || balls[1].Position != pos(1, 1) {
		t.Errorf("balls at %v and %v, want them to pass through each other", balls[0].Position, balls[1].Position)
	}
}
