// Package handlers holds the helpers shared by the HTTP handler units.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/common/metrics"
	"evbot/internal/common/validation"
	"evbot/internal/history"
	"evbot/internal/models"
)

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// Register adds every route of the groups to mux using method patterns.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		for _, route := range g.Routes {
			mux.HandleFunc(route.Method+" "+g.Prefix+route.Pattern, route.Handler)
		}
	}
}

// RespondJSON writes v with the given status.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads at most maxBytes of the body, checks it against schema when one is given,
// and decodes it into v. Numbers are kept as json.Number. Every failure is INVALID_REQUEST.
func DecodeJSON(r *http.Request, maxBytes int64, schema *validation.Compiled, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return apperrors.NewInvalidRequestError("read body: " + err.Error())
	}
	if int64(len(body)) > maxBytes {
		return apperrors.NewInvalidRequestError("request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return apperrors.NewInvalidRequestError("request body is empty")
	}

	if schema != nil {
		var doc interface{}
		if err := json.Unmarshal(body, &doc); err != nil {
			return apperrors.NewInvalidRequestError("malformed JSON: " + err.Error())
		}
		if result := schema.Validate(doc); !result.Valid {
			return apperrors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidRequestError("malformed JSON: " + err.Error())
	}
	return nil
}

// Reporter publishes the outcome of every prediction: metrics, history and alerts.
// Recording and alert failures are logged only.
type Reporter struct {
	recorder history.Recorder
	notifier Notifier
	logger   logger.Logger
}

// Notifier raises alerts for stored predictions. *alerts.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, rec models.PredictionRecord) []models.Alert
}

// NewReporter accepts nil recorder and notifier.
func NewReporter(recorder history.Recorder, notifier Notifier, log logger.Logger) *Reporter {
	return &Reporter{
		recorder: recorder,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "reporter"}),
	}
}

// Report records one prediction attempt that started at start.
func (r *Reporter) Report(ctx context.Context, source models.PredictionSource, start time.Time, result *models.PredictionResult, err error) {
	metrics.PredictionDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionFailures.WithLabelValues(string(source), string(apperrors.CodeOf(err))).Inc()
		return
	}
	r.Success(ctx, source, result)
}

// Success stores a prediction made elsewhere, such as inside a chat turn.
func (r *Reporter) Success(ctx context.Context, source models.PredictionSource, result *models.PredictionResult) {
	if r == nil || result == nil {
		return
	}
	metrics.PredictionsTotal.WithLabelValues(string(source), string(result.ResultType)).Inc()

	rec := history.NewRecord(source, result)
	if r.recorder != nil {
		if err := r.recorder.Record(ctx, rec); err != nil {
			r.logger.WithError(err).Warn("Failed to record prediction", map[string]interface{}{
				"id":     rec.ID,
				"source": string(source),
			})
		}
	}
	if r.notifier != nil {
		for _, a := range r.notifier.Notify(ctx, rec) {
			r.logger.Info("Maintenance alert", map[string]interface{}{
				"id":      rec.ID,
				"channel": a.Channel,
				"status":  a.Status,
			})
		}
	}
}
