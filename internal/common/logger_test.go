package common

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	t.Run("json format emits JSON records", func(t *testing.T) {
		var buf bytes.Buffer
		h, err := newHandler(&buf, "info", "json")
		require.NoError(t, err)

		slog.New(h).Info("expense recorded", "merchant", "starbucks")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "expense recorded", record["msg"])
		assert.Equal(t, "starbucks", record["merchant"])
	})

	t.Run("console format emits text records", func(t *testing.T) {
		var buf bytes.Buffer
		h, err := newHandler(&buf, "info", "console")
		require.NoError(t, err)

		slog.New(h).Info("expense recorded")
		assert.Contains(t, buf.String(), "msg=\"expense recorded\"")
	})

	t.Run("level gates lower records", func(t *testing.T) {
		var buf bytes.Buffer
		h, err := newHandler(&buf, "warn", "console")
		require.NoError(t, err)

		assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := newHandler(&bytes.Buffer{}, "verbose", "console")
		assert.ErrorContains(t, err, "invalid log level")
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := newHandler(&bytes.Buffer{}, "info", "xml")
		assert.ErrorContains(t, err, "invalid log format")
	})
}
