package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "json")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "info", "json") })

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warn("shown %d", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown 3", entry["message"])
}

func TestInitWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "verbose-ish", "json")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "info", "json") })

	Debug("hidden")
	Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWith_AddsField(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { InitWithWriter(&bytes.Buffer{}, "info", "json") })

	l := With("cycle", "abc123")
	l.Info().Msg("tick")

	assert.Contains(t, buf.String(), `"cycle":"abc123"`)
}
