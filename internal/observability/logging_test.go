package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/ldtk-importer/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := config.LoggingConfig{Level: level, Format: "json"}
		logger, err := NewLogger(cfg)
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func TestNewLoggerTo_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Info("import complete", zap.Int("files", 5))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), "only the info entry is written")
	assert.Equal(t, "import complete", entry["msg"])
	assert.Equal(t, "ldtk", entry["logger"])
	assert.Equal(t, float64(5), entry["files"])
}

func TestNewLoggerTo_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "warn", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("skipping post-processor", zap.String("stage", "Level"))
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "skipping post-processor")
	assert.Contains(t, buf.String(), `"stage": "Level"`)
}
