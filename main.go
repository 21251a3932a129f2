// Command tilepuzzle runs the tile puzzle server and its clients.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" opens the terminal client on an in-process session
//  4. "autoplay" drives a session from a Lua script
//  5. "solve" searches for the shortest solution of a level
//  6. "levels" lists the level pack or imports it into Postgres
//
// Settings come from a TOML file (TILEPUZZLE_CONFIG); flags override the
// values most often changed from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tilepuzzle/game/config"
	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"github.com/wricardo/tilepuzzle/game/service"
	"github.com/wricardo/tilepuzzle/game/session"
	"github.com/wricardo/tilepuzzle/logging"
	"github.com/wricardo/tilepuzzle/settings"
	"github.com/wricardo/tilepuzzle/solver"
	"go.uber.org/zap"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tile Puzzle Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the command tree.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "tilepuzzle",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "tilepuzzle.toml",
				Usage:   "settings file (missing file means defaults)",
				Sources: cli.EnvVars("TILEPUZZLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "levels",
				Usage: "level directory; switches the level backend to file",
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres DSN; switches the level backend to postgres",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server with API, WebSocket and MCP endpoint",
				Flags:  serveFlags(),
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server with an internal HTTP server",
				Flags:   serveFlags(),
				Action:  runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "play in the terminal",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "level", Usage: "level to start on"},
					&cli.StringFlag{Name: "session", Usage: "resume a saved session"},
					&cli.BoolFlag{Name: "mute", Usage: "disable sound"},
					&cli.StringFlag{Name: "log-file", Usage: "write logs to this file"},
				},
				Action: runPlay,
			},
			{
				Name:  "autoplay",
				Usage: "drive a session from a Lua script",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "script", Usage: "Lua file defining next_move(state)", Required: true},
					&cli.IntFlag{Name: "level", Usage: "level to start on"},
					&cli.IntFlag{Name: "max-steps", Value: 1000, Usage: "stop after this many intents"},
					&cli.DurationFlag{Name: "wait", Value: 500 * time.Millisecond, Usage: "simulated time per wait intent"},
				},
				Action: runAutoplay,
			},
			{
				Name:  "solve",
				Usage: "find the shortest move sequence for a level",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "level", Usage: "level to solve"},
					&cli.IntFlag{Name: "max-depth", Value: solver.DefaultMaxDepth, Usage: "longest sequence to try"},
					&cli.IntFlag{Name: "max-states", Value: solver.DefaultMaxStates, Usage: "give up after this many distinct positions"},
					&cli.StringFlag{Name: "session", Usage: "play the solution on this session"},
				},
				Action: runSolve,
			},
			{
				Name:  "levels",
				Usage: "inspect or import the level pack",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list the levels of the configured backend",
						Action: runLevelsList,
					},
					{
						Name:  "import",
						Usage: "copy a level pack into Postgres",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "from", Usage: "level directory to import (default: the built-in pack)"},
							&cli.StringFlag{Name: "pack", Usage: "pack name in the database"},
						},
						Action: runLevelsImport,
					},
				},
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// loadSettings reads the settings file and applies flag overrides.
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	cfg, err := settings.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if dir := cmd.String("levels"); dir != "" {
		cfg.Levels.Backend = "file"
		cfg.Levels.Dir = dir
	}
	if dsn := cmd.String("dsn"); dsn != "" {
		cfg.Database.DSN = dsn
		if cmd.String("levels") == "" {
			cfg.Levels.Backend = "postgres"
		}
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// timing converts the simulation settings into engine periods.
func timing(cfg settings.SimulationConfig) engine.Timing {
	return engine.Timing{
		Frame:       cfg.Frame,
		Movement:    cfg.Movement,
		Transporter: cfg.Transporter,
		Volatile:    cfg.Volatile,
	}
}

// openLevelStore returns the configured backend and a function releasing it.
func openLevelStore(ctx context.Context, cfg *settings.Settings, log *zap.Logger) (levelstore.Store, func(), error) {
	switch cfg.Levels.Backend {
	case "file":
		store, err := levelstore.NewDir(cfg.Levels.Dir, log.Named("levels"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		store, err := levelstore.OpenPostgres(ctx, cfg.Database, cfg.Levels.Pack, log.Named("levels"))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return levelstore.NewEmbedded(), func() {}, nil
	}
}

// services holds everything a command needs to run games in-process.
type services struct {
	game        service.GameService
	levels      *config.Manager
	sessions    *session.Manager
	persistence *session.FilePersistence
	close       func()
}

// initializeServices wires the level store, level manager, session manager
// and game service.
func initializeServices(ctx context.Context, cfg *settings.Settings, log *zap.Logger) (*services, error) {
	store, closeStore, err := openLevelStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open level store: %w", err)
	}

	levels, err := config.NewManager(ctx, store, log.Named("levels"))
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	opts := []engine.Option{engine.WithTiming(timing(cfg.Simulation)), engine.WithLogger(log.Named("engine"))}

	persistence, err := session.NewFilePersistence(cfg.Sessions.Dir, levels, log.Named("persistence"), opts...)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessions := session.NewManagerWithPersistence(levels, persistence, log.Named("sessions"), opts...)
	if err := sessions.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", zap.Error(err))
	}

	return &services{
		game:        service.NewGameService(sessions, levels, log.Named("service")),
		levels:      levels,
		sessions:    sessions,
		persistence: persistence,
		close: func() {
			if err := sessions.SaveAllSessions(); err != nil {
				log.Warn("failed to save sessions", zap.Error(err))
			}
			closeStore()
		},
	}, nil
}

// newLogger builds the logger for commands that write to stdout freely.
func newLogger(cfg *settings.Settings) (*zap.Logger, error) {
	return logging.New(cfg.Logging)
}
