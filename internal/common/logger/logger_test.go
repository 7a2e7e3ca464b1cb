package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_WritesToConfiguredOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evbot.log")

	log := New("warn", "json", path)
	log.Info("dropped below level")
	log.Warn("model unavailable", zap.String("component", "asset-cache"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry), "one JSON line expected, got %q", data)
	assert.Equal(t, "model unavailable", entry["msg"])
	assert.Equal(t, "asset-cache", entry["component"])
	assert.Contains(t, entry, "ts")
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithFields(map[string]interface{}{"component": "prediction"}).
		WithError(fmt.Errorf("boom")).
		Warn("asset load failed", map[string]interface{}{"path": "models/ev_model.json"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "asset load failed", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "prediction", ctx["component"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "models/ev_model.json", ctx["path"])
}

func TestContextLogger(t *testing.T) {
	fallback := NewNoOpLogger()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := NewTestLogger(t).With(map[string]interface{}{"requestId": "abc"})
	ctx := IntoContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
}
