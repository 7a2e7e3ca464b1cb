// Package history stores predictions for later reporting.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"evbot/internal/common/logger"
	"evbot/internal/common/metrics"
	"evbot/internal/models"
)

// Recorder persists one prediction.
type Recorder interface {
	Name() string
	Record(ctx context.Context, rec models.PredictionRecord) error
}

// Reader serves the history endpoints.
type Reader interface {
	Summary(ctx context.Context) (*models.HistorySummary, error)
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

// NewRecord stamps a prediction result with an id and the current time.
func NewRecord(source models.PredictionSource, result *models.PredictionResult) models.PredictionRecord {
	return models.PredictionRecord{
		ID:         uuid.NewString(),
		Source:     source,
		ClassID:    result.ClassID,
		ResultType: result.ResultType,
		Message:    result.Message,
		Inputs:     result.Inputs,
		CreatedAt:  time.Now().UTC(),
	}
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

// Fanout writes every record to all recorders. A failing recorder does not stop the others.
type Fanout struct {
	recorders []Recorder
	logger    logger.Logger
}

func NewFanout(log logger.Logger, recorders ...Recorder) *Fanout {
	return &Fanout{
		recorders: recorders,
		logger:    log.WithFields(map[string]interface{}{"component": "history"}),
	}
}

func (f *Fanout) Name() string { return "fanout" }

// Len reports how many recorders are attached.
func (f *Fanout) Len() int { return len(f.recorders) }

func (f *Fanout) Record(ctx context.Context, rec models.PredictionRecord) error {
	var errs []error
	for _, r := range f.recorders {
		if err := r.Record(ctx, rec); err != nil {
			metrics.HistoryWrites.WithLabelValues(r.Name(), "error").Inc()
			f.logger.WithError(err).Warn("Failed to record prediction", map[string]interface{}{
				"backend": r.Name(),
				"id":      rec.ID,
			})
			errs = append(errs, err)
			continue
		}
		metrics.HistoryWrites.WithLabelValues(r.Name(), "ok").Inc()
	}
	return errors.Join(errs...)
}

func emptySummary() *models.HistorySummary {
	return &models.HistorySummary{
		ByResultType: map[models.ResultType]int{
			models.ResultTypeShort:  0,
			models.ResultTypeMedium: 0,
			models.ResultTypeLong:   0,
		},
	}
}
