package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/zeebo/assert"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", false)

	logger.Info().Msg("hidden")
	logger.Warn().Str("pool", "0xP").Msg("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.Contains(out, `"pool":"0xP"`))
	assert.Equal(t, logger.GetLevel(), zerolog.WarnLevel)
}

func TestNewWithWriterFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, NewWithWriter(&buf, "loud", false).GetLevel(), zerolog.InfoLevel)
	assert.Equal(t, NewWithWriter(&buf, "", false).GetLevel(), zerolog.InfoLevel)
}
