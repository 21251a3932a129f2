package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/tilepuzzle/game/engine"
	"github.com/wricardo/tilepuzzle/game/service"
	"github.com/wricardo/tilepuzzle/solver"
	"go.uber.org/zap"
)

// runSolve searches for the shortest move sequence of a level and, with
// --session, plays it on that session.
func runSolve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	svcs, err := initializeServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svcs.close()

	number := startLevel(cmd, cfg)
	sol, err := solver.Solve(ctx, svcs.levels, number, solver.Options{
		MaxDepth:  cmd.Int("max-depth"),
		MaxStates: cmd.Int("max-states"),
		Log:       log,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Level %d: %d moves (%d states explored)\n%s\n",
		sol.Level, len(sol.Moves), sol.Explored, sol)

	id := cmd.String("session")
	if id == "" {
		return nil
	}
	result, err := applySolution(ctx, svcs.game, id, sol)
	if err != nil || result == nil {
		return err
	}
	log.Info("solution applied",
		zap.String("session", id),
		zap.Int("executed", result.MovesExecuted),
		zap.Int("level", result.EndLevel))
	return nil
}

// applySolution reloads the session on the solved level and plays the moves
// in bulk requests of at most engine.MaxBulkMoves.
func applySolution(ctx context.Context, svc service.GameService, sessionID string, sol *solver.Solution) (*service.BulkMoveResult, error) {
	state, err := svc.GetGameState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Level != sol.Level {
		if _, err := svc.ChangeLevel(ctx, sessionID, sol.Level-state.Level); err != nil {
			return nil, err
		}
	}

	moves := sol.Strings()
	var (
		last     *service.BulkMoveResult
		executed int
	)
	for start := 0; start < len(moves); start += engine.MaxBulkMoves {
		chunk := moves[start:min(start+engine.MaxBulkMoves, len(moves))]
		last, err = svc.BulkMove(ctx, sessionID, chunk, start == 0)
		if err != nil {
			return nil, err
		}
		executed += last.MovesExecuted
		if !last.Success || last.MovesExecuted < len(chunk) {
			return last, fmt.Errorf("solution stopped on move %d: %s", start+last.StoppedOnMove, last.StoppedReason)
		}
	}
	if last != nil {
		last.MovesExecuted = executed
		last.RequestedMoves = len(moves)
	}
	return last, nil
}
