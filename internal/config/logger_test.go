package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo(t *testing.T) {
	t.Run("production writes json at info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, "production")

		logger.Debug("hidden")
		logger.Info("recognition completed", "matches", 2)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "recognition completed", entry["msg"])
		assert.Equal(t, float64(2), entry["matches"])
	})

	t.Run("development writes text at debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, "development")

		logger.Debug("model loading")

		assert.Contains(t, buf.String(), "model loading")
		assert.Contains(t, buf.String(), "source=")
	})

	t.Run("quiet drops info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, "quiet")

		logger.Info("noise")
		logger.Warn("kept")

		assert.NotContains(t, buf.String(), "noise")
		assert.Contains(t, buf.String(), "kept")
	})
}
