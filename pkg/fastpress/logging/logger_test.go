package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.Info("GET /items 200 - 3ms", "controller", "ItemController", "status", 200)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET /items 200 - 3ms", entry["message"])
	assert.Equal(t, "ItemController", entry["controller"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestZerologLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown too")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestResolve(t *testing.T) {
	configured := Nop()
	assert.Same(t, configured, Resolve(configured))

	fallback := Resolve(nil)
	require.NotNil(t, fallback)
	assert.IsType(t, &ZerologLogger{}, fallback)
}

func TestResolveLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, resolveLevel("development", ""))
	assert.Equal(t, zerolog.InfoLevel, resolveLevel("production", ""))
	assert.Equal(t, zerolog.WarnLevel, resolveLevel("production", "WARN"))
	assert.Equal(t, zerolog.InfoLevel, resolveLevel("production", "nonsense"))
}
