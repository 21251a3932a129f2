package levelstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/wricardo/tilepuzzle/game/level"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const tinyLevel = "[General]\nWidth=2\nHeight=1\n\n[Player]\nPosition=1,1\n"

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEmbeddedPack(t *testing.T) {
	ctx := context.Background()
	s := NewEmbedded()

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 5 || infos[0].Name != "First Steps" {
		t.Fatalf("infos = %+v", infos)
	}

	for _, info := range infos {
		text, err := s.Read(ctx, info.Number)
		if err != nil {
			t.Fatalf("Read(%d): %v", info.Number, err)
		}

		core, logs := observer.New(zapcore.WarnLevel)
		lvl := level.Parse(text, zap.New(core))
		if logs.Len() != 0 {
			t.Errorf("level %d parsed with warnings: %v", info.Number, logs.All())
		}
		if lvl.Count(level.Player) != 1 {
			t.Errorf("level %d has %d players", info.Number, lvl.Count(level.Player))
		}
		if lvl.Count(level.Exit) == 0 {
			t.Errorf("level %d has no exit", info.Number)
		}
	}

	if err := s.Write(ctx, 1, tinyLevel); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Write to embedded pack: err = %v, want ErrReadOnly", err)
	}
}

func TestPackStore_ScanWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"level10.txt": "ten",
		"level2.txt":  "two",
		"level1.txt":  "one",
		"notes.md":    "ignored",
	})

	s, err := NewDir(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	infos, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	if want := []string{"level1", "level2", "level10"}; !slices.Equal(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}

	text, err := s.Read(context.Background(), 3)
	if err != nil || text != "ten" {
		t.Errorf("Read(3) = %q, %v", text, err)
	}
	if _, err := s.Read(context.Background(), 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(4): err = %v", err)
	}
}

func TestPackStore_ManifestOrderAndWrite(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ManifestFile: "name: Test\nlevels:\n  - file: b.txt\n    name: Bravo\n  - file: a.txt\n",
		"a.txt":      "alpha",
		"b.txt":      "bravo",
	})
	s, err := NewDir(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []Info{{1, "Bravo"}, {2, "a"}}; !slices.Equal(infos, want) {
		t.Errorf("infos = %+v, want %+v", infos, want)
	}

	if err := s.Write(ctx, 2, tinyLevel); err != nil {
		t.Fatalf("Write existing: %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "a.txt")); string(data) != tinyLevel {
		t.Errorf("a.txt = %q", data)
	}

	if err := s.Write(ctx, 3, tinyLevel); err != nil {
		t.Fatalf("Write append: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Name != "Test" || len(m.Levels) != 3 || m.Levels[2].File != "level3.txt" {
		t.Errorf("manifest after append = %+v", m)
	}
	if text, err := s.Read(ctx, 3); err != nil || text != tinyLevel {
		t.Errorf("Read(3) = %q, %v", text, err)
	}

	if err := s.Write(ctx, 9, tinyLevel); !errors.Is(err, ErrNotFound) {
		t.Errorf("Write gap: err = %v", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".level-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestPackStore_BadManifest(t *testing.T) {
	tests := map[string]string{
		"not yaml":  "levels: [",
		"path file": "levels:\n  - file: ../escape.txt\n",
		"no file":   "levels:\n  - name: nameless\n",
	}
	for name, manifest := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{ManifestFile: manifest})
			s, err := NewDir(dir, nil)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.List(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewDir_Missing(t *testing.T) {
	if _, err := NewDir(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
