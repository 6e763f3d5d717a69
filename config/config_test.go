package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ossd/config"
)

func TestLoad_Defaults(t *testing.T) {
	// Load with no config files should use defaults
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30, cfg.Engine.CleanupTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "ossd.db", cfg.Database.DSN)
	assert.Equal(t, "objects", cfg.Database.Table)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	// Create a temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
database:
  type: postgres
  dsn: postgres://localhost/test
  table: custom_objects
storage:
  path: /tmp/storage
log:
  level: debug
  format: json
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost/test", cfg.Database.DSN)
	assert.Equal(t, "custom_objects", cfg.Database.Table)
	assert.Equal(t, "/tmp/storage", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	tmpDir := t.TempDir()

	// Base config
	basePath := filepath.Join(tmpDir, "base.yaml")
	baseContent := `
server:
  port: 9000
database:
  type: sqlite
  dsn: ossd.db
  table: objects
storage:
  path: ./data
log:
  level: info
  format: text
`
	err := os.WriteFile(basePath, []byte(baseContent), 0o644)
	require.NoError(t, err)

	// Override config
	overridePath := filepath.Join(tmpDir, "override.yaml")
	overrideContent := `
server:
  port: 9001
log:
  level: warn
`
	err = os.WriteFile(overridePath, []byte(overrideContent), 0o644)
	require.NoError(t, err)

	// Load with merge (later files override earlier)
	cfg, err := config.Load([]string{basePath, overridePath}, nil)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	// Values from the base file survive the merge
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "./data", cfg.Storage.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("OSSD_SERVER_PORT", "7070")
	t.Setenv("OSSD_DATABASE_TYPE", "postgres")
	t.Setenv("OSSD_DATABASE_DSN", "postgres://env/db")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
}

func TestLoad_FlagOverride(t *testing.T) {
	t.Setenv("OSSD_SERVER_PORT", "7070")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "server port")
	flags.String("db-dsn", "", "database dsn")
	require.NoError(t, flags.Parse([]string{"--port=6060", "--db-dsn=flag.db"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	// Flags beat env and defaults
	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "flag.db", cfg.Database.DSN)
}

func TestLoad_UnsetFlagDoesNotOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 1234, "server port")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	// Flag default never overrides config default unless set explicitly
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("OSSD_SERVER_PORT", "99999")

	_, err := config.Load(nil, nil)
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("OSSD_LOG_LEVEL", "loud")

	_, err := config.Load(nil, nil)
	assert.Error(t, err)
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("OSSD_LOG_FORMAT", "xml")

	_, err := config.Load(nil, nil)
	assert.Error(t, err)
}

func TestWithContext_RoundTrip(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	ctx := config.WithContext(t.Context(), cfg)
	got, err := config.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestFromContext_Missing(t *testing.T) {
	_, err := config.FromContext(t.Context())
	assert.Error(t, err)
}
