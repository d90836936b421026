package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rybkr/gittopo/internal/config"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewFiltersStderrByLevel(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := New(config.LogConfig{Level: "warn"}, &stderr)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "branch", "main")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "shown")
	assert.Contains(t, stderr.String(), "branch=main")
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topo.log")
	var stderr bytes.Buffer
	logger, closer, err := New(config.LogConfig{
		Level:      "error",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, &stderr)
	require.NoError(t, err)

	logger.With("component", "test").Debug("traversed", "visited", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"traversed"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Empty(t, stderr.String())
}
