package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	m := NewManagerAt(path)

	require.NoError(t, m.Load())
	_, err := os.Stat(path)
	require.NoError(t, err, "default config file should be written")

	cfg := m.Get()
	assert.Equal(t, 400, cfg.Navigation.RelistDeletedDelayMS)
	assert.True(t, cfg.Navigation.ShortenWarnings)
	assert.Equal(t, "detailed", cfg.View.Mode)
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"navigation":{"rescuePath":"D:\\safe"}}`), 0o644))

	m := NewManagerAt(path)
	require.NoError(t, m.Load())
	cfg := m.Get()
	assert.Equal(t, `D:\safe`, cfg.Navigation.RescuePath)
	assert.Equal(t, 4, cfg.Icons.Workers)
	assert.Nil(t, m.ParseError())
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	m := NewManagerAt(path)
	require.NoError(t, m.Load())
	assert.Error(t, m.ParseError())
	assert.Equal(t, *DefaultConfig(), m.Get())
}

func TestSetRescuePathPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManagerAt(path)
	require.NoError(t, m.Load())
	require.NoError(t, m.SetRescuePath(`C:\Users`))

	again := NewManagerAt(path)
	require.NoError(t, again.Load())
	assert.Equal(t, `C:\Users`, again.Get().Navigation.RescuePath)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SALPANEL_RESCUE_PATH=/srv/rescue\nSALPANEL_ICON_WORKERS=7\n"), 0o644))
	t.Setenv(EnvLogLevel, "DEBUG")

	m := NewManagerAt(filepath.Join(dir, "config.json"))
	require.NoError(t, m.ApplyEnv(envFile, filepath.Join(dir, "missing.env")))

	cfg := m.Get()
	assert.Equal(t, "/srv/rescue", cfg.Navigation.RescuePath)
	assert.Equal(t, 7, cfg.Icons.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvProcessWins(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SALPANEL_RESCUE_PATH=/from/file\n"), 0o644))
	t.Setenv(EnvRescuePath, "/from/env")

	m := NewManagerAt(filepath.Join(dir, "config.json"))
	require.NoError(t, m.ApplyEnv(envFile))
	assert.Equal(t, "/from/env", m.Get().Navigation.RescuePath)
}
