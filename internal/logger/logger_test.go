package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rezonia/ubl-pdf/internal/logger"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     logger.Config
		level   zapcore.Level
		wantErr bool
	}{
		{"defaults", logger.Config{}, zapcore.InfoLevel, false},
		{"debug console", logger.Config{Level: "debug", Format: "console", OutputPath: "stderr"}, zapcore.DebugLevel, false},
		{"warn json", logger.Config{Level: "warn", Format: "json", OutputPath: "stdout"}, zapcore.WarnLevel, false},
		{"unknown level", logger.Config{Level: "loud"}, zapcore.InfoLevel, true},
		{"unknown format", logger.Config{Format: "xml"}, zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.NewLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.level))
			assert.False(t, log.Core().Enabled(tt.level-1))
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ublpdf.log")

	log, err := logger.NewLogger(logger.Config{Level: "info", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("Converted", zap.String("invoice_id", "INV-1"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Converted", entry["msg"])
	assert.Equal(t, "INV-1", entry["invoice_id"])
	assert.Contains(t, entry, "timestamp")
}
