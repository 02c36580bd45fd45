package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/db"
	"github.com/yigit/roster/internal/pkg/logger"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var migrationFiles embed.FS

// goose keeps its dialect, filesystem and logger in package globals
var gooseMu sync.Mutex

// Migrator applies the embedded schema migrations
type Migrator struct {
	db     *db.DB
	logger zerolog.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(database *db.DB, logger zerolog.Logger) *Migrator {
	return &Migrator{
		db:     database,
		logger: logger,
	}
}

// dir returns the migration directory for the connection's dialect
func (m *Migrator) dir() (fs.FS, error) {
	switch m.db.Dialect {
	case db.DialectSQLite:
		return fs.Sub(migrationFiles, "sql/sqlite")
	case db.DialectPostgres:
		return fs.Sub(migrationFiles, "sql/postgres")
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", m.db.Dialect)
	}
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	fsys, err := m.dir()
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	goose.SetLogger(logger.Printf{Logger: m.logger})
	if err := goose.SetDialect(string(m.db.Dialect)); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, m.db.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	m.logger.Info().Int64("version", version).Msg("Database schema is up to date")
	return nil
}
