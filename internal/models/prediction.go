package models

import "time"

// RawPayload is the untyped input submitted by a form, API client or chat request,
// keyed by input key (soc, voltage, ...).
type RawPayload map[string]interface{}

// FeatureRecord maps canonical column names to typed values (float64, int or string).
type FeatureRecord map[string]interface{}

// Float returns a numeric column as float64.
func (r FeatureRecord) Float(column string) float64 {
	switch v := r[column].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Int returns an integer column. Values that went through JSON arrive as float64.
func (r FeatureRecord) Int(column string) int {
	switch v := r[column].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// String returns a categorical column.
func (r FeatureRecord) String(column string) string {
	s, _ := r[column].(string)
	return s
}

type ResultType string

const (
	ResultTypeShort  ResultType = "short"
	ResultTypeMedium ResultType = "medium"
	ResultTypeLong   ResultType = "long"
)

// PredictionResult is the outcome of one classified record.
type PredictionResult struct {
	ClassID    int           `json:"class_id"`
	ResultType ResultType    `json:"result_type"`
	Message    string        `json:"message"`
	Inputs     FeatureRecord `json:"inputs"`
}

// PredictionSource identifies the surface that requested a prediction.
type PredictionSource string

const (
	SourceWeb  PredictionSource = "web"
	SourceAPI  PredictionSource = "api"
	SourceChat PredictionSource = "chat"
	SourceCLI  PredictionSource = "cli"
)

// PredictionRecord is one stored prediction.
type PredictionRecord struct {
	ID         string           `json:"id"`
	Source     PredictionSource `json:"source"`
	ClassID    int              `json:"class_id"`
	ResultType ResultType       `json:"result_type"`
	Message    string           `json:"message"`
	Inputs     FeatureRecord    `json:"inputs"`
	CreatedAt  time.Time        `json:"created_at"`
}

// HistorySummary counts stored predictions per result type.
type HistorySummary struct {
	Total        int                `json:"total"`
	ByResultType map[ResultType]int `json:"by_result_type"`
}
