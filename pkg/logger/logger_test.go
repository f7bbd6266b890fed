package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "quotes"})
	logger.Info().Int64("user_id", 7).Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"service":"quotes"`)
	assert.Contains(t, out, `"user_id":7`)
	assert.Contains(t, out, `"message":"hello"`)
	assert.Contains(t, out, `"caller":`)
}

func TestNewLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		conf Config
		want zerolog.Level
	}{
		{name: "default info", conf: Config{}, want: zerolog.InfoLevel},
		{name: "debug flag", conf: Config{Debug: true}, want: zerolog.DebugLevel},
		{name: "explicit level wins", conf: Config{Debug: true, Level: "WARN"}, want: zerolog.WarnLevel},
		{name: "bad level falls back", conf: Config{Level: "loud"}, want: zerolog.InfoLevel},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, New(&bytes.Buffer{}, tc.conf).GetLevel())
		})
	}
}

func TestNewDropsBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf)
	logger.Debug().Msg("hidden")
	require.Empty(t, buf.String())

	logger.Info().Msg("shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestPrettyFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{PrettyFormat: true})
	logger.Info().Msg("pretty")
	assert.NotContains(t, buf.String(), `"message"`)
	assert.Contains(t, buf.String(), "pretty")
}
