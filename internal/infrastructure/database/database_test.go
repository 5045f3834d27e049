package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := &DBConfig{Host: "db", Port: 5433, Username: "lib", Password: "p@ss/word", DBName: "library"}
	assert.Equal(t, "postgres://lib:p%40ss%2Fword@db:5433/library?sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestPoolStatsDerived(t *testing.T) {
	s := &PoolStats{MaxConns: 20, AcquiredConns: 17, AcquireCount: 4, AcquireDuration: 400 * time.Millisecond}
	assert.InDelta(t, 85.0, s.Utilization(), 0.001)
	assert.Equal(t, 100*time.Millisecond, s.AvgAcquireDuration())

	empty := &PoolStats{}
	assert.Zero(t, empty.Utilization())
	assert.Zero(t, empty.AvgAcquireDuration())
}

func TestStatsWithoutPool(t *testing.T) {
	db := NewPostgresDB(&DBConfig{})
	_, err := db.Stats()
	require.Error(t, err)
	require.Error(t, db.HealthCheck(t.Context()))
	db.Close()
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "001_init", migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS reservations")
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}
