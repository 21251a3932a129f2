package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/service"
	"github.com/wricardo/tilepuzzle/logging"
	"github.com/wricardo/tilepuzzle/scripting"
	"github.com/wricardo/tilepuzzle/settings"
	"github.com/wricardo/tilepuzzle/tui"
	"go.uber.org/zap"
)

// runPlay opens the terminal client on a new or resumed session.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if path := cmd.String("log-file"); path != "" {
		if log, err = logging.NewFile(cfg.Logging, path); err != nil {
			return err
		}
		defer log.Sync()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svcs.close()

	sessionID, err := openSession(ctx, svcs.game, cmd.String("session"), startLevel(cmd, cfg))
	if err != nil {
		return err
	}

	sounds := tui.Sounder(nil)
	if cfg.TUI.Sound && !cmd.Bool("mute") {
		sm := tui.NewSoundManager()
		if err := sm.Initialize(); err != nil {
			log.Warn("sound disabled", zap.Error(err))
		} else {
			defer sm.Close()
			sounds = sm
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	app := tui.New(screen, svcs.game, tui.Options{
		SessionID: sessionID,
		Frame:     cfg.Simulation.Frame,
		Sounds:    sounds,
		Log:       log,
	})
	return app.Run(ctx)
}

// runAutoplay drives a fresh session with a Lua script and prints the
// outcome.
func runAutoplay(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pilot, err := scripting.LoadAutopilot(cmd.String("script"), log)
	if err != nil {
		return err
	}
	defer pilot.Close()

	svcs, err := initializeServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svcs.close()

	sessionID, err := openSession(ctx, svcs.game, "", startLevel(cmd, cfg))
	if err != nil {
		return err
	}
	log.Info("autopilot started", zap.String("session", sessionID), zap.String("script", cmd.String("script")))

	summary, err := pilot.Run(ctx, svcs.game, sessionID, scripting.RunOptions{
		MaxSteps: cmd.Int("max-steps"),
		Wait:     cmd.Duration("wait"),
		OnStep: func(intent scripting.Intent, state *engine.GameState) {
			log.Debug("step",
				zap.Stringer("intent", intent),
				zap.Int("level", state.Level),
				zap.Bool("game_over", state.GameOver))
		},
	})
	if err != nil {
		return err
	}

	log.Info("autopilot finished",
		zap.String("session", sessionID),
		zap.String("reason", summary.Reason),
		zap.Int("steps", summary.Steps),
		zap.Int("moves", summary.Moves),
		zap.Int("blocked", summary.Blocked),
		zap.Int("reloads", summary.Reloads),
		zap.Int("level", summary.Level),
		zap.Bool("completed", summary.Completed))
	return nil
}

func startLevel(cmd *cli.Command, cfg *settings.Settings) int {
	if n := cmd.Int("level"); n > 0 {
		return n
	}
	return cfg.Levels.Start
}

// openSession resumes id when given, otherwise creates a session on level.
func openSession(ctx context.Context, svc service.GameService, id string, level int) (string, error) {
	if id != "" {
		info, err := svc.GetSession(ctx, id)
		if err != nil {
			return "", fmt.Errorf("resume session %s: %w", id, err)
		}
		return info.ID, nil
	}
	info, err := svc.CreateSession(ctx, level)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return info.ID, nil
}
