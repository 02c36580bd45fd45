package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/yigit/roster/internal/config"
	"github.com/yigit/roster/internal/pkg/helpers"
)

// Dialect names the SQL flavour behind a connection
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DBTX is the subset of database/sql used by repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a connection pool together with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// New wraps an already opened pool
func New(conn *sql.DB, dialect Dialect) *DB {
	return &DB{DB: conn, Dialect: dialect}
}

// Open opens and pings the database selected by cfg.Database.Driver
func Open(cfg *config.Config, logger zerolog.Logger) (*DB, error) {
	var (
		driverName string
		dsn        string
		dialect    Dialect
	)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		driverName, dsn, dialect = "pgx", cfg.GetPostgresConnectionString(), DialectPostgres
	case config.DriverSQLite, "":
		driverName, dsn, dialect = "sqlite", cfg.GetSQLiteDSN(), DialectSQLite
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	conn.SetConnMaxLifetime(helpers.DurationOr(cfg.Database.ConnMaxLifetime, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	logger.Info().Str("driver", driverName).Str("dialect", string(dialect)).Msg("Database connection established")
	return New(conn, dialect), nil
}

// StatementBuilder returns a squirrel builder for dialect
func StatementBuilder(dialect Dialect) sq.StatementBuilderType {
	if dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx DBTX) error

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic. Panics are rethrown after the rollback.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFn) (err error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback error: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(ctx, tx)
}
