package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/config"
)

func TestNewLogger_UsesConfiguredLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level     string
		enabled   slog.Level
		suppressed slog.Level
	}{
		{level: "debug", enabled: slog.LevelDebug, suppressed: slog.LevelDebug - 4},
		{level: "info", enabled: slog.LevelInfo, suppressed: slog.LevelDebug},
		{level: "warn", enabled: slog.LevelWarn, suppressed: slog.LevelInfo},
		{level: "error", enabled: slog.LevelError, suppressed: slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "text"})

			assert.True(t, logger.Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Enabled(context.Background(), tt.suppressed))
			assert.Same(t, logger, slog.Default())
		})
	}
}
