// Package settings loads the TOML configuration file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Settings struct {
	Server     ServerConfig     `toml:"server"`
	Levels     LevelsConfig     `toml:"levels"`
	Database   DatabaseConfig   `toml:"database"`
	Simulation SimulationConfig `toml:"simulation"`
	Sessions   SessionsConfig   `toml:"sessions"`
	Logging    LoggingConfig    `toml:"logging"`
	Ngrok      NgrokConfig      `toml:"ngrok"`
	TUI        TUIConfig        `toml:"tui"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type LevelsConfig struct {
	Backend string `toml:"backend"` // "embedded", "file" or "postgres"
	Dir     string `toml:"dir"`
	Pack    string `toml:"pack"` // pack name inside the database
	Start   int    `toml:"start"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxConns        int           `toml:"max_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type SimulationConfig struct {
	Realtime    bool          `toml:"realtime"` // advance every session on the server clock
	Frame       time.Duration `toml:"frame"`
	Movement    time.Duration `toml:"movement"`
	Transporter time.Duration `toml:"transporter"`
	Volatile    time.Duration `toml:"volatile"`
}

type SessionsConfig struct {
	Dir             string        `toml:"dir"`
	MaxAge          time.Duration `toml:"max_age"`
	CleanupInterval time.Duration `toml:"cleanup_interval"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type NgrokConfig struct {
	Enabled bool   `toml:"enabled"`
	Domain  string `toml:"domain"`
}

type TUIConfig struct {
	Sound bool `toml:"sound"`
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Settings, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside the
// server.
func (s *Settings) Validate() error {
	switch s.Levels.Backend {
	case "embedded", "file", "postgres":
	default:
		return fmt.Errorf("unknown levels backend %q", s.Levels.Backend)
	}
	if s.Levels.Backend == "file" && s.Levels.Dir == "" {
		return errors.New("levels.dir is required for the file backend")
	}
	if s.Levels.Backend == "postgres" && s.Database.DSN == "" {
		return errors.New("database.dsn is required for the postgres backend")
	}
	if s.Levels.Start < 1 {
		return fmt.Errorf("levels.start must be at least 1, got %d", s.Levels.Start)
	}
	if s.Simulation.Frame <= 0 {
		return fmt.Errorf("simulation.frame must be positive, got %s", s.Simulation.Frame)
	}
	if s.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("sessions.cleanup_interval must be positive, got %s", s.Sessions.CleanupInterval)
	}
	return nil
}

func Defaults() *Settings {
	return &Settings{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Levels: LevelsConfig{
			Backend: "embedded",
			Dir:     "levels",
			Pack:    "default",
			Start:   1,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxConns:        10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Simulation: SimulationConfig{
			Realtime:    true,
			Frame:       100 * time.Millisecond,
			Movement:    500 * time.Millisecond,
			Transporter: time.Second,
			Volatile:    500 * time.Millisecond,
		},
		Sessions: SessionsConfig{
			Dir:             "sessions",
			MaxAge:          24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			Sound: true,
		},
	}
}
