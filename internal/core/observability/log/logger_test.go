package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: LevelDebug, Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	scoped := logger.With(String("component", "test"))
	scoped.Info("scene saved", String("scene", "Test"), Int("entities", 2), Error(errors.New("none")))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"component":"test"`), line)
	assert.True(t, strings.Contains(line, `"scene":"Test"`), line)
	assert.True(t, strings.Contains(line, `"entities":2`), line)
}

func TestSetLevelFiltersDerivedLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: LevelInfo, Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	derived := logger.With(String("component", "child"))
	logger.SetLevel(LevelError)
	assert.Equal(t, LevelError, derived.GetLevel())

	derived.Warn("dropped")
	derived.Error("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Error("nothing happens", Any("k", struct{}{}))
	assert.NotNil(t, Provide())
}
