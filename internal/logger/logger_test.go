package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{" WARNING ", zerolog.WarnLevel},
		{"Error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			require.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}

	// Reset to debug for other tests.
	SetLevel("debug")
}

func TestConfigure(t *testing.T) {
	saved := Log
	t.Cleanup(func() {
		Log = saved
		SetLevel("debug")
	})

	t.Run("applies level", func(t *testing.T) {
		Configure("error", "")
		require.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	})

	t.Run("switches to JSON output", func(t *testing.T) {
		Configure("info", "JSON")
		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})
}

func TestNewJSON_TagsService(t *testing.T) {
	SetLevel("debug")

	var buf bytes.Buffer
	l := newJSON(&buf)
	l.Info().Str("phone", MaskPhone("01712345678")).Msg("sim detached")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, serviceName, entry["service"])
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "sim detached", entry["message"])
	require.NotContains(t, buf.String(), "01712345678")
}

func TestNewConsole_WritesMessage(t *testing.T) {
	SetLevel("debug")

	var buf bytes.Buffer
	l := newConsole(&buf)
	l.Warn().Int("device_no", 3).Msg("device relinked")

	require.Contains(t, buf.String(), "device relinked")
	require.Contains(t, buf.String(), "device_no")
}
