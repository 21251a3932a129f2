// Package solver finds the shortest sequence of player moves that clears a
// level. It explores cloned worlds breadth-first on a scratch engine, so the
// rules it plays by are exactly the ones sessions use.
//
//	sol, err := solver.Solve(ctx, levels, 3, solver.Options{MaxDepth: 100})
//	if err == nil {
//		svc.BulkMove(ctx, sessionID, sol.Strings(), false)
//	}
package solver
