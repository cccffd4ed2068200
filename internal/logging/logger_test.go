package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Pretty: false, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("stage", "load").Msg("Loaded snapshot")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "load", entry["stage"])
	assert.Equal(t, "Loaded snapshot", entry["message"])
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Pretty: false, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Msg("hidden")
	Info().Msg("hidden")
	assert.Zero(t, buf.Len(), "debug and info should be filtered at warn level")

	Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Pretty: false, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Pretty: false, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	log := Component("copurchase")
	log.Info().Msg("pairs counted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "copurchase", entry["component"])
}
