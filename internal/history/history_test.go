package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evbot/internal/common/logger"
	"evbot/internal/models"
)

func sampleResult() *models.PredictionResult {
	return &models.PredictionResult{
		ClassID:    2,
		ResultType: models.ResultTypeLong,
		Message:    "Optimal Charging: Long Duration - Battery maintenance recommended.",
		Inputs:     models.FeatureRecord{"SOC (%)": 20.0, "Charging Cycles": 800},
	}
}

type memoryRecorder struct {
	name    string
	err     error
	records []models.PredictionRecord
}

func (m *memoryRecorder) Name() string { return m.name }

func (m *memoryRecorder) Record(_ context.Context, rec models.PredictionRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(models.SourceAPI, sampleResult())

	assert.Len(t, rec.ID, 36)
	assert.Equal(t, models.SourceAPI, rec.Source)
	assert.Equal(t, 2, rec.ClassID)
	assert.Equal(t, models.ResultTypeLong, rec.ResultType)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NotEqual(t, rec.ID, NewRecord(models.SourceAPI, sampleResult()).ID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultRecentLimit, ClampLimit(0))
	assert.Equal(t, DefaultRecentLimit, ClampLimit(-5))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxRecentLimit, ClampLimit(10_000))
}

func TestFanout_Record(t *testing.T) {
	good := &memoryRecorder{name: "postgres"}
	bad := &memoryRecorder{name: "elasticsearch", err: errors.New("cluster red")}
	other := &memoryRecorder{name: "memory"}

	fanout := NewFanout(logger.NewTestLogger(t), good, bad, other)
	assert.Equal(t, 3, fanout.Len())

	err := fanout.Record(context.Background(), NewRecord(models.SourceWeb, sampleResult()))
	require.Error(t, err)
	assert.ErrorContains(t, err, "cluster red")

	assert.Len(t, good.records, 1)
	assert.Len(t, other.records, 1, "a failing recorder does not stop the others")
}

func TestFanout_Empty(t *testing.T) {
	fanout := NewFanout(logger.NewNoOpLogger())
	assert.NoError(t, fanout.Record(context.Background(), NewRecord(models.SourceCLI, sampleResult())))
}
