package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New("debug", "production", &buf), "advisor")
	log.Debug().Str("user_id", "u1").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "advisor", entry["component"])
	assert.Equal(t, "wealth-go-api", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "production", &buf)
	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewUnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", "production", &buf)
	log.Debug().Msg("dropped")
	log.Info().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewDevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "development", &buf)
	log.Info().Msg("readable")
	assert.Contains(t, buf.String(), "readable")
	assert.NotContains(t, buf.String(), `"message"`)
}
