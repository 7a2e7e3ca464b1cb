package prediction

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"evbot/internal/common/config"
	"evbot/internal/common/logger"
	"evbot/internal/models"
)

// shortPayload is a form-style payload that the fixture forest classifies as class 0.
func shortPayload() models.RawPayload {
	return models.RawPayload{
		"soc":          "80",
		"voltage":      "3.7",
		"current":      "10",
		"battery_temp": "30",
		"ambient_temp": "25",
		"duration":     "45",
		"degradation":  "5",
		"mode":         "Fast",
		"efficiency":   "92.5",
		"battery_type": "Li-ion",
		"cycles":       "150",
		"ev_model":     "Model A",
	}
}

func mediumPayload() models.RawPayload {
	p := shortPayload()
	p["duration"] = 90.0
	p["mode"] = "Normal"
	return p
}

func longPayload() models.RawPayload {
	p := shortPayload()
	p["duration"] = 120.0
	p["degradation"] = 15.0
	p["cycles"] = 800.0
	p["mode"] = "Slow"
	return p
}

func fixtureConfig() config.ModelConfig {
	return config.ModelConfig{
		Path:         filepath.Join("testdata", "ev_model.json"),
		EncodersPath: filepath.Join("testdata", "label_encoders.json"),
		ManifestPath: filepath.Join("testdata", "manifest.json"),
		Format:       "forest",
	}
}

func newFixtureService(t *testing.T) *Service {
	t.Helper()
	log := logger.NewTestLogger(t)
	cache := NewAssetCache(NewFileLoader(fixtureConfig(), log), log)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	return NewService(cache, log)
}
