package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "DATABASE_FILE_PATH")
	assert.Contains(t, err.Error(), "database_file_path")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabaseFilePath)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/xreader.db
server_port: 8080
database_debug: true
page_size: 10
sync_debounce: 250ms
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/xreader.db", cfg.DatabaseFilePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncDebounce)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/from-file.db
server_port: 8080
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "/data/from-env.db")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/from-env.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9090, cfg.ServerPort)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.False(t, cfg.DatabaseDebug)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, time.Second, cfg.SyncDebounce)
	assert.Equal(t, 10*time.Second, cfg.SyncTimeout)
	assert.Equal(t, "espeak-ng", cfg.TTSBinary)
}

func TestNew_DefaultDatabasePathUsesStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	t.Setenv("DATABASE_FILE_PATH", "")
	require.NoError(t, os.Unsetenv("DATABASE_FILE_PATH"))

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/state/xreader/xreader.sqlite", cfg.DatabaseFilePath)
}

func TestValidateServer(t *testing.T) {
	cfg := NewForTest()
	err := cfg.ValidateServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_SECRET_KEY")

	cfg.SyncSecretKey = "secret"
	cfg.SyncTokenHash = "hash"
	assert.NoError(t, cfg.ValidateServer())
}

func TestNewForTest(t *testing.T) {
	cfg := NewForTest()
	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Equal(t, 20, cfg.PageSize)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "database_file_path", toSnakeCase("DatabaseFilePath"))
	assert.Equal(t, "server_port", toSnakeCase("ServerPort"))
	assert.Equal(t, "sync_token_hash", toSnakeCase("SyncTokenHash"))
}
