package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khutwa-dev/khutwa/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		" trace ": zerolog.TraceLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"chatty":  zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestInit_JSONWithComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer func() { Logger = zerolog.Nop() }()

	var buf bytes.Buffer
	Init(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	sessionLog := Component("session")
	sessionLog.Info().Str("role", "admin").Msg("Session started")
	sessionLog.Debug().Msg("below level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "admin", entry["role"])
	assert.Equal(t, "Session started", entry["message"])
	assert.Contains(t, entry, "caller")
}

func TestInit_Console(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer func() { Logger = zerolog.Nop() }()

	var buf bytes.Buffer
	Init(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)

	l := GetLogger()
	l.Debug().Msg("console line")

	out := buf.String()
	assert.Contains(t, out, "console line")
	assert.NotContains(t, out, "\x1b[", "colors are off for non-terminal writers")
}

func TestNew_DoesNotTouchProcessLogger(t *testing.T) {
	defer func() { Logger = zerolog.Nop() }()

	var process, local bytes.Buffer
	Logger = New("json", &process)

	l := New("json", &local)
	l.Warn().Msg("local only")

	assert.Empty(t, process.String())
	assert.Contains(t, local.String(), "local only")
}
