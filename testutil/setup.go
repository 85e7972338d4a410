// Package testutil provides shared test fixtures: an in-memory SQLite
// database and an in-process cache, so tests need no external services.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/cache"
	"github.com/fitquest/fitquest/config"
	dbadapter "github.com/fitquest/fitquest/db"
	"github.com/fitquest/fitquest/model"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates an in-process cache and pub/sub pair.
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.Config{} // empty RedisAddr → in-process backend
	c, err := cache.New(cfg)
	require.NoError(t, err, "SetupTestCache: New")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}
