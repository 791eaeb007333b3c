package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(buf, "info", FormatJSON)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("file", "Fatura2025-10-20.csv").Msg("imported")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"imported"`)
	assert.Contains(t, out, `"file":"Fatura2025-10-20.csv"`)
}

func TestNew_Console(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(buf, "DEBUG", FormatConsole)
	require.NoError(t, err)

	log.Debug().Msg("parsed")
	assert.Contains(t, buf.String(), "parsed")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestNew_DefaultLevel(t *testing.T) {
	log, err := New(&bytes.Buffer{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)
}

func jsonLogger(t *testing.T, buf *bytes.Buffer) zerolog.Logger {
	t.Helper()
	log, err := New(buf, "info", FormatJSON)
	require.NoError(t, err)
	return log
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), jsonLogger(t, buf))

	log := FromContext(ctx)
	log.Info().Msg("test")
	assert.Contains(t, buf.String(), "test")
}

func TestFromContext_Default(t *testing.T) {
	log := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(jsonLogger(t, buf), map[string]any{"user_id": "123", "month": "2025-10"})
	log.Info().Msg("test message")

	out := buf.String()
	assert.Contains(t, out, `"user_id":"123"`)
	assert.Contains(t, out, `"month":"2025-10"`)
}
