package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbot_predictions_total",
			Help: "Total number of successful predictions by source and result type",
		},
		[]string{"source", "result_type"},
	)

	PredictionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbot_prediction_failures_total",
			Help: "Total number of failed predictions by source and error code",
		},
		[]string{"source", "error_code"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evbot_prediction_duration_seconds",
			Help:    "Duration of the prediction pipeline in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"source"},
	)

	PredictionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbot_prediction_cache_lookups_total",
			Help: "Prediction cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)

	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbot_chat_requests_total",
			Help: "Total number of chat turns by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "evbot_provider_duration_seconds",
			Help: "Duration of chat provider calls in seconds",
		},
		[]string{"provider"},
	)

	ModelReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evbot_model_ready",
			Help: "1 when the classifier and encoders are loaded, 0 otherwise",
		},
	)

	HistoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbot_history_writes_total",
			Help: "Prediction history writes by backend and outcome",
		},
		[]string{"backend", "status"},
	)

	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evbot_alerts_sent_total",
			Help: "Maintenance alerts by channel and outcome",
		},
		[]string{"channel", "status"},
	)
)
