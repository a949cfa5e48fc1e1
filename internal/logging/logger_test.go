package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mikey/thread-triage/internal/config"
)

func TestNewConfig(t *testing.T) {
	cases := []struct {
		level    string
		format   string
		want     zapcore.Level
		encoding string
	}{
		{"debug", "json", zapcore.DebugLevel, "json"},
		{"warn", "console", zapcore.WarnLevel, "console"},
		{"error", "json", zapcore.ErrorLevel, "json"},
		{"loud", "json", zapcore.InfoLevel, "json"},
	}
	for _, c := range cases {
		cfg := NewConfig(c.level, c.format)
		assert.Equal(t, c.want, cfg.Level.Level(), c.level)
		assert.Equal(t, c.encoding, cfg.Encoding, c.format)
	}
}

func TestInitLogger(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("logging.level", "debug")

	logger, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
