package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yigit/roster/internal/app/migrations"
	"github.com/yigit/roster/internal/config"
	"github.com/yigit/roster/internal/db"
)

// newTestDB opens a migrated sqlite file private to the test
func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "roster.db")
	cfg.Database.MaxOpenConns = 1
	cfg.Database.MaxIdleConns = 1
	cfg.Database.ConnMaxLifetime = "1h"

	database, err := db.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.NewMigrator(database, zerolog.Nop()).Up(context.Background()))
	return database
}
