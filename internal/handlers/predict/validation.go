package predict

import (
	"evbot/internal/common/validation"
	"evbot/internal/prediction"
)

var descriptions = map[string]string{
	"soc":          "State of charge in percent",
	"voltage":      "Battery voltage in volts",
	"current":      "Charging current in amperes",
	"battery_temp": "Battery temperature in °C",
	"ambient_temp": "Ambient temperature in °C",
	"duration":     "Charging duration in minutes",
	"degradation":  "Battery degradation in percent",
	"mode":         "Charging mode (Fast, Normal, Slow)",
	"efficiency":   "Charging efficiency in percent",
	"battery_type": "Battery chemistry",
	"cycles":       "Number of charging cycles",
	"ev_model":     "EV model name",
}

// GetInputSchema only checks the envelope. Field presence and types are reported by the
// normalizer so the API and the form share one set of messages.
func GetInputSchema() validation.JSONSchema {
	props := make(map[string]validation.Property, prediction.NumFeatures())
	for _, key := range prediction.InputKeys() {
		props[key] = validation.Property{Description: descriptions[key]}
	}
	return validation.JSONSchema{
		Type:       "object",
		Properties: props,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"class_id", "result_type", "message", "inputs"},
		Properties: map[string]validation.Property{
			"class_id": {
				Type:        "integer",
				Description: "Predicted duration class",
				Minimum:     validation.Float(0),
			},
			"result_type": {
				Type:        "string",
				Description: "Duration bucket",
			},
			"message": {
				Type:        "string",
				Description: "Human readable outcome",
			},
			"inputs": {
				Type:        "object",
				Description: "Normalized record keyed by column name",
			},
		},
	}
}
