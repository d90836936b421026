package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string {
		return m[key]
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topo.yaml")
	content := "color: never\n" +
		"log:\n" +
		"  level: debug\n" +
		"  file: /tmp/topo.log\n" +
		"server:\n" +
		"  listen: 127.0.0.1:9000\n" +
		"  poll_interval: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(envMap(map[string]string{
		EnvConfigFile: path,
		EnvListen:     ":7000",
	}))
	require.NoError(t, err)

	assert.Equal(t, "never", cfg.Color)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/topo.log", cfg.Log.File)
	assert.Equal(t, 1, cfg.Log.MaxSizeMB)
	assert.Equal(t, ":7000", cfg.Server.Listen)
	assert.Equal(t, 2*time.Second, cfg.Server.PollInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{
		EnvConfigFile: filepath.Join(t.TempDir(), "missing.yaml"),
	}))
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"color":    {EnvColor: "sometimes"},
		"level":    {EnvLogLevel: "loud"},
		"size":     {EnvLogMaxSize: "big"},
		"backups":  {EnvLogMaxBackups: "-1"},
		"interval": {EnvPollInterval: "soon"},
		"zero":     {EnvPollInterval: "0s"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(envMap(env))
			assert.Error(t, err)
		})
	}
}
