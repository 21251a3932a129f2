package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/tilepuzzle/game/config"
	"github.com/wricardo/tilepuzzle/game/levelstore"
	"go.uber.org/zap"
)

func runLevelsList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, closeStore, err := openLevelStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	levels, err := config.NewManager(ctx, store, log.Named("levels"))
	if err != nil {
		return err
	}
	infos, err := levels.ListLevels(ctx)
	if err != nil {
		return err
	}
	return printLevels(cmd.Root().Writer, infos)
}

func printLevels(w io.Writer, infos []*levelstore.LevelInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSIZE\tOBJECTS\tPLAYERS\tEXITS\tSTATUS")
	for _, l := range infos {
		status := "ok"
		if l.Error != "" {
			status = l.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%d\t%d\t%d\t%s\n",
			l.Number, l.Name, l.Width, l.Height, l.Objects, l.Players, l.Exits, status)
	}
	return tw.Flush()
}

// runLevelsImport copies a directory pack, or the built-in one, into the
// configured database.
func runLevelsImport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("levels import needs a database (--dsn or DATABASE_URL)")
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	var src levelstore.Store = levelstore.NewEmbedded()
	if dir := cmd.String("from"); dir != "" {
		if src, err = levelstore.NewDir(dir, log.Named("source")); err != nil {
			return err
		}
	}

	pack := cfg.Levels.Pack
	if p := cmd.String("pack"); p != "" {
		pack = p
	}

	dst, err := levelstore.OpenPostgres(ctx, cfg.Database, pack, log.Named("postgres"))
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := dst.Import(ctx, src)
	if err != nil {
		return err
	}
	log.Info("levels imported", zap.String("pack", pack), zap.Int("count", n))
	return nil
}
