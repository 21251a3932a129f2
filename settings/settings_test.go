package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Levels.Backend != "embedded" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Simulation.Movement != 500*time.Millisecond {
		t.Errorf("movement = %s", cfg.Simulation.Movement)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilepuzzle.toml")
	content := `
[server]
port = 9090

[levels]
backend = "file"
dir = "/srv/levels"
start = 3

[simulation]
movement = "250ms"
transporter = "2s"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Levels.Backend != "file" || cfg.Levels.Dir != "/srv/levels" || cfg.Levels.Start != 3 {
		t.Errorf("levels = %+v", cfg.Levels)
	}
	if cfg.Simulation.Movement != 250*time.Millisecond || cfg.Simulation.Transporter != 2*time.Second {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.Frame != 100*time.Millisecond {
		t.Errorf("frame should keep its default, got %s", cfg.Simulation.Frame)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad toml", "[server\nport = 1", "parse config"},
		{"unknown backend", "[levels]\nbackend = \"s3\"", "unknown levels backend"},
		{"postgres without dsn", "[levels]\nbackend = \"postgres\"", "database.dsn"},
		{"zero start", "[levels]\nstart = 0", "levels.start"},
		{"zero cleanup interval", "[sessions]\ncleanup_interval = 0", "sessions.cleanup_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
