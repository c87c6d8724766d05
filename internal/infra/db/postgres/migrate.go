package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

var ErrMigrationFailed = errors.New("failed to apply migrations")

// Migrate brings the schema up to the latest embedded version.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *zerolog.Logger) error {
	return runGoose(ctx, pool, log, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, migrationsDir)
	})
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, pool *pgxpool.Pool, log *zerolog.Logger) error {
	return runGoose(ctx, pool, log, func(db *sql.DB) error {
		return goose.DownContext(ctx, db, migrationsDir)
	})
}

func runGoose(ctx context.Context, pool *pgxpool.Pool, log *zerolog.Logger, fn func(db *sql.DB) error) error {
	// goose speaks database/sql; open a short-lived handle from the pool's config.
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("close migration connection")
		}
	}()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := fn(db); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// gooseLogger routes goose's Printf-style output through zerolog.
type gooseLogger struct {
	log *zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error().Str("component", "migrate").Msg(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Str("component", "migrate").Msg(fmt.Sprintf(format, v...))
}
