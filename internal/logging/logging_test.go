package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_ProductionConsoleIsJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "info", Production: true, Console: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("session started", "user", "u1", "candidates", 3)
	require.NoError(t, l.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "session started", entry["message"])
	assert.Equal(t, "u1", entry["user"])
	assert.Equal(t, float64(3), entry["candidates"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "toplist.log")
	var console bytes.Buffer
	l, err := New(Options{Level: "debug", File: path, Console: &console})
	require.NoError(t, err)

	l.Warn("version conflict, retrying", "user", "u1")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"version conflict, retrying"`)
	assert.Contains(t, console.String(), "version conflict, retrying")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}
