package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-crud-service/internal/config"
)

func TestNew_FromConfigPath(t *testing.T) {
	dir := t.TempDir()
	env := "APP_ENV=test\n" +
		"HTTP_PORT=0\n" +
		"DB_DRIVER=sqlite\n" +
		"DB_SQLITE_PATH=" + filepath.Join(dir, "users.db") + "\n" +
		"LOG_OUTPUT_PATH=" + filepath.Join(dir, "app.log") + "\n" +
		"LOG_FORMAT=json\n" +
		"GRPC_HEALTH_ENABLED=true\n" +
		"GRPC_PORT=0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(env), 0o600))
	t.Setenv("CONFIG_PATH", dir)

	a, err := New(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test", a.Config.App.Env)
	assert.NotNil(t, a.Server.GRPC)
	assert.NotNil(t, a.Server.Health)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	logged, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "starting application")
	assert.Contains(t, string(logged), "application shutdown complete")
}

func TestNewWithConfig_InvalidConfig(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{HTTPPort: "0", ShutdownTimeoutSeconds: 1},
		DB:  config.DatabaseConfig{Driver: "mysql"},
	}

	_, err := NewWithConfig(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, ".", getConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/users")
	assert.Equal(t, "/etc/users", getConfigPath())
}
