package levelstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/wricardo/tilepuzzle/settings"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps level packs in the levels table, one row per level.
type PostgresStore struct {
	pool *pgxpool.Pool
	pack string
	log  *zap.Logger
}

// OpenPostgres connects, applies pending migrations and returns a store for
// the named pack.
func OpenPostgres(ctx context.Context, cfg settings.DatabaseConfig, pack string, log *zap.Logger) (*PostgresStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("level database ready", zap.String("pack", pack))
	return &PostgresStore{pool: pool, pack: pack, log: log}, nil
}

// RunMigrations applies all pending database migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT number, name FROM levels WHERE pack = $1 ORDER BY number`, s.pack)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.Number, &info.Name); err != nil {
			return nil, fmt.Errorf("list levels: %w", err)
		}
		if info.Name == "" {
			info.Name = fmt.Sprintf("level%d", info.Number)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *PostgresStore) Read(ctx context.Context, number int) (string, error) {
	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM levels WHERE pack = $1 AND number = $2`, s.pack, number,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %d", ErrNotFound, number)
	}
	if err != nil {
		return "", fmt.Errorf("read level %d: %w", number, err)
	}
	return content, nil
}

// Write replaces an existing level, or appends one when number is one past
// the last level.
func (s *PostgresStore) Write(ctx context.Context, number int, text string) error {
	var count int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM levels WHERE pack = $1`, s.pack,
	).Scan(&count); err != nil {
		return fmt.Errorf("count levels: %w", err)
	}
	if number < 1 || number > count+1 {
		return fmt.Errorf("%w: %d", ErrNotFound, number)
	}
	return s.upsert(ctx, number, "", text)
}

// Import copies every level of src into this store's pack, keeping numbers
// and names. It returns the number of levels copied.
func (s *PostgresStore) Import(ctx context.Context, src Store) (int, error) {
	infos, err := src.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, info := range infos {
		text, err := src.Read(ctx, info.Number)
		if err != nil {
			return i, err
		}
		if err := s.upsert(ctx, info.Number, info.Name, text); err != nil {
			return i, err
		}
		s.log.Debug("level imported", zap.Int("number", info.Number), zap.String("name", info.Name))
	}
	return len(infos), nil
}

func (s *PostgresStore) upsert(ctx context.Context, number int, name, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO levels (pack, number, name, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (pack, number) DO UPDATE
		 SET content = EXCLUDED.content,
		     name = CASE WHEN EXCLUDED.name = '' THEN levels.name ELSE EXCLUDED.name END,
		     updated_at = now()`,
		s.pack, number, name, text,
	)
	if err != nil {
		return fmt.Errorf("write level %d: %w", number, err)
	}
	return nil
}
