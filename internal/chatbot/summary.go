package chatbot

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"evbot/internal/models"
	"evbot/internal/prediction"
)

// Summary renders a prediction as the compact context block handed to the provider.
func Summary(result *models.PredictionResult) string {
	in := result.Inputs
	value := func(column string) string { return formatValue(in[column]) }

	var b strings.Builder
	b.WriteString("EV model prediction:\n")
	fmt.Fprintf(&b, "- Outcome: %s\n", result.Message)
	fmt.Fprintf(&b, "- Result type: %s\n", result.ResultType)
	fmt.Fprintf(&b, "- Key metrics: SOC %s%%, Voltage %s V, Current %s A, Duration %s min, Efficiency %s%%\n",
		value(prediction.ColumnSOC),
		value(prediction.ColumnVoltage),
		value(prediction.ColumnCurrent),
		value(prediction.ColumnDuration),
		value(prediction.ColumnEfficiency),
	)
	fmt.Fprintf(&b, "- Battery: %s / %s / Mode %s",
		value(prediction.ColumnBatteryType),
		value(prediction.ColumnEVModel),
		value(prediction.ColumnChargingMode),
	)
	return b.String()
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat prints the shortest round-trip form, keeping ".0" on whole numbers and switching
// to exponent notation below 1e-4 and from 1e16.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
