package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"chatty", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		logger, err := New(tt.in)
		require.NoError(t, err)
		assert.Truef(t, logger.Core().Enabled(tt.want), "level %q", tt.in)
		if tt.want > zapcore.DebugLevel {
			assert.Falsef(t, logger.Core().Enabled(tt.want-1), "level %q", tt.in)
		}
	}
}

func TestMust(t *testing.T) {
	assert.NotNil(t, Must("info"))
}
