package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/app/config"
)

func TestNew(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
		logger.Debug().Str("key", "value").Msg("hello")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "hello", entry["message"])
		assert.Equal(t, "value", entry["key"])
		assert.Equal(t, "quill", entry["service"])
	})

	t.Run("level filters lower entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
		logger.Info().Msg("dropped")
		assert.Empty(t, buf.String())
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	})

	t.Run("unknown level defaults to info", func(t *testing.T) {
		logger := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("console format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(config.LogConfig{Level: "info", Format: "console"}, &buf)
		logger.Info().Msg("readable")
		assert.Contains(t, buf.String(), "readable")
	})
}
