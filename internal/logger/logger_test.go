package logger_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/anatolykoptev/go-ecoscan/internal/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, logger.ParseLevel(tc.in), "ParseLevel(%q)", tc.in)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ecoscan.log")
	log, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	_ = log.Sync()
}

func TestNew_BadOutputPath(t *testing.T) {
	t.Parallel()

	_, err := logger.New(logger.Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	require.Error(t, err)
}

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg logger.Config
	cfg.SetDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}
