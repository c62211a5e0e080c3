package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amirphl/counter-app/config"
	"github.com/amirphl/counter-app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "counter.db"),
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := Open(sqliteConfig(t), Options{})
	require.NoError(t, err)
	defer Close(db)

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	// Migrating twice is a no-op
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Ping(ctx, db))

	assert.True(t, db.Migrator().HasTable(&models.Counter{}))
	assert.True(t, db.Migrator().HasIndex(&models.Counter{}, "uk_counters_name"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestUniqueNameConstraint(t *testing.T) {
	db, err := Open(sqliteConfig(t), Options{})
	require.NoError(t, err)
	defer Close(db)
	require.NoError(t, Migrate(context.Background(), db))

	require.NoError(t, db.Create(&models.Counter{Name: "dup"}).Error)
	assert.Error(t, db.Create(&models.Counter{Name: "dup"}).Error)
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
