package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/models"
)

var errNotCastable = errors.New("NOT_CASTABLE")

// Normalize validates a raw payload against the schema and casts every value.
// All fields are inspected before failing. Missing keys are reported ahead of invalid ones,
// and no partial record is ever returned.
func Normalize(payload models.RawPayload) (models.FeatureRecord, error) {
	record := make(models.FeatureRecord, len(schema))
	var missing, invalid []string

	for _, f := range schema {
		raw, ok := payload[f.InputKey]
		if !ok || isBlank(raw) {
			missing = append(missing, f.InputKey)
			continue
		}

		val, err := cast(raw, f.Kind)
		if err != nil {
			invalid = append(invalid, f.InputKey)
			continue
		}
		record[f.Column] = val
	}

	if len(missing) > 0 {
		return nil, apperrors.NewMissingFieldsError(missing)
	}
	if len(invalid) > 0 {
		return nil, apperrors.NewInvalidFieldsError(invalid)
	}
	return record, nil
}

// isBlank treats nil and the empty string as absent. Whitespace-only strings are not blank.
func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func cast(raw interface{}, kind Kind) (interface{}, error) {
	switch kind {
	case KindFloat:
		return toFloat(raw)
	case KindInt:
		return toInt(raw)
	case KindString:
		return toString(raw)
	}
	return nil, errNotCastable
}

// toFloat accepts finite numbers only; NaN and infinities cannot be encoded in responses.
func toFloat(raw interface{}) (float64, error) {
	f, err := parseFloat(raw)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotCastable
	}
	return f, nil
}

func parseFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case bool:
		return boolValue(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return strconv.ParseFloat(v.String(), 64)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errNotCastable
		}
		return f, nil
	}
	return 0, errNotCastable
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case bool:
		return int(boolValue(v)), nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return truncate(v)
	case float32:
		return truncate(float64(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, errNotCastable
		}
		return truncate(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errNotCastable
		}
		return i, nil
	}
	return 0, errNotCastable
}

// boolValue casts a checkbox-style boolean to 1 or 0.
func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// truncate mirrors integer casting of a decoded JSON number: toward zero, finite only.
func truncate(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, errNotCastable
	}
	return int(math.Trunc(f)), nil
}

// toString never fails. Values that are not scalars are rendered as JSON and are left for
// the encoder to reject as unknown categories.
func toString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case bool:
		if v {
			return "True", nil
		}
		return "False", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return strings.TrimSpace(v.String()), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw), nil
	}
	return strings.TrimSpace(string(data)), nil
}
