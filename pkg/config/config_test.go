package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Layout-api/pkg/config"
)

func TestLoad_ExigeJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := config.Load()
	assert.Error(t, err)

	cfg, err := config.LoadForTools()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoad_LeeVariablesDeLayout(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LAYOUT_SYNC_TIMEOUT_SECONDS", "3")
	t.Setenv("LAYOUT_SESSION_IDLE_MINUTES", "5")
	t.Setenv("LAYOUT_HISTORY_LIMIT", "7")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Layout.SyncTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Layout.SessionIdle)
	assert.Equal(t, 7, cfg.Layout.HistoryLimit)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "layout", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/layout?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
