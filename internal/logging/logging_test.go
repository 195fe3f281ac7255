package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		expected zerolog.Level
	}{
		{name: "quiet", verbose: false, expected: zerolog.WarnLevel},
		{name: "verbose", verbose: true, expected: zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(&bytes.Buffer{}, tt.verbose)
			assert.Equal(t, tt.expected, log.GetLevel())
		})
	}
}

func TestNewWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Debug().Msg("hidden")
	log.Warn().Str("path", ".env").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "path=.env")
	assert.NotContains(t, out, "\x1b[", "non-terminal output has no color codes")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("VITALS_VERBOSE", "1")
	assert.Equal(t, zerolog.DebugLevel, FromEnv(&bytes.Buffer{}, false).GetLevel())

	t.Setenv("VITALS_VERBOSE", "")
	assert.Equal(t, zerolog.WarnLevel, FromEnv(&bytes.Buffer{}, false).GetLevel())
}
