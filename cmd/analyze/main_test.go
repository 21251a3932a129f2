package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wricardo/tilepuzzle/game/grid"
	"github.com/wricardo/tilepuzzle/game/level"
	"github.com/wricardo/tilepuzzle/game/levelstore"
)

const firstSteps = `[General]
Width=7
Height=3

[BlueBlock]
Position=3,2

[Exit]
Position=7,2

[Player]
Position=1,2

[RedBlock]
Position=3,1
Position=5,3
`

func TestAnalyzeLevel(t *testing.T) {
	a := analyzeLevel(level.Parse(firstSteps, nil))

	if a.Width != 7 || a.Height != 3 {
		t.Errorf("size = %dx%d", a.Width, a.Height)
	}
	if a.Objects != 5 || a.Occupied != 5 {
		t.Errorf("objects = %d occupied = %d", a.Objects, a.Occupied)
	}
	if a.Counts[level.RedBlock] != 2 || a.Counts[level.BlueBlock] != 1 {
		t.Errorf("counts = %v", a.Counts)
	}
	if a.Pushables != 1 || a.Hazards != 0 || a.Movers != 0 {
		t.Errorf("pushables=%d hazards=%d movers=%d", a.Pushables, a.Hazards, a.Movers)
	}
	// around the block column through (3,3) and (4,2)
	if a.DirectRoute != 8 {
		t.Errorf("direct route = %d, want 8", a.DirectRoute)
	}
}

func TestAnalyzeLevel_Hazards(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantHazards int
		wantMovers  int
		wantRoute   int
	}{
		{
			name:        "water cuts the grid",
			text:        "[General]\nWidth=5\nHeight=2\n[Exit]\nPosition=5,1\n[Player]\nPosition=1,1\n[Water]\nPosition=3,1;3,2\n",
			wantHazards: 2,
			wantRoute:   -1,
		},
		{
			name:        "mine with a way around",
			text:        "[General]\nWidth=3\nHeight=2\n[Exit]\nPosition=3,1\n[Mine]\nPosition=2,1\n[Player]\nPosition=1,1\n",
			wantHazards: 1,
			wantRoute:   4,
		},
		{
			name:        "movers do not block",
			text:        "[General]\nWidth=3\nHeight=1\n[BouncingBall]\nDirection=Down\nPosition=2,1\n[Exit]\nPosition=3,1\n[Player]\nPosition=1,1\n",
			wantHazards: 1,
			wantMovers:  1,
			wantRoute:   2,
		},
		{
			name:      "no exit",
			text:      "[General]\nWidth=3\nHeight=1\n[Player]\nPosition=1,1\n",
			wantRoute: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeLevel(level.Parse(tt.text, nil))
			if a.Hazards != tt.wantHazards || a.Movers != tt.wantMovers {
				t.Errorf("hazards=%d movers=%d, want %d %d", a.Hazards, a.Movers, tt.wantHazards, tt.wantMovers)
			}
			if a.DirectRoute != tt.wantRoute {
				t.Errorf("route = %d, want %d", a.DirectRoute, tt.wantRoute)
			}
		})
	}
}

func TestShortestRoute(t *testing.T) {
	dims := grid.Dimensions{Width: 3, Height: 3}
	start := grid.Position{X: 1, Y: 1}

	if got := shortestRoute(dims, start, map[grid.Position]bool{start: true}, nil); got != 0 {
		t.Errorf("route to self = %d", got)
	}
	goal := map[grid.Position]bool{{X: 3, Y: 3}: true}
	if got := shortestRoute(dims, start, goal, nil); got != 4 {
		t.Errorf("open route = %d, want 4", got)
	}
	walls := map[grid.Position]bool{{X: 2, Y: 1}: true, {X: 1, Y: 2}: true}
	if got := shortestRoute(dims, start, goal, walls); got != -1 {
		t.Errorf("boxed in route = %d, want -1", got)
	}
}

func TestDensity(t *testing.T) {
	a := &Analysis{Width: 4, Height: 2, Occupied: 2}
	if got := a.Density(); got != 0.25 {
		t.Errorf("density = %v", got)
	}
	if got := (&Analysis{}).Density(); got != 0 {
		t.Errorf("empty density = %v", got)
	}
}

func TestAnalyzePack_Embedded(t *testing.T) {
	var buf bytes.Buffer
	if err := analyzePack(context.Background(), levelstore.NewEmbedded(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"=== Level 1: First Steps ===",
		"Grid Size: 7 x 3",
		"Exit reachable in 8 moves",
		"=== Level 2: Rafting ===",
		"No direct route",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
