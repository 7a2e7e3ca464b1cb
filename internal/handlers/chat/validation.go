package chat

import "evbot/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"message": {
				Type:        "string",
				Description: "User question about EV batteries",
				MaxLength:   validation.Int(MaxMessageLength),
			},
			"payload": {
				Description: "Optional charging readings keyed by input key",
				AnyOf: []validation.Property{
					{Type: "object"},
					{Type: "null"},
				},
			},
		},
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"response"},
		Properties: map[string]validation.Property{
			"response": {
				Type:        "string",
				Description: "Reply text, always present",
			},
			"provider": {
				Type:        "string",
				Description: "Provider that produced the reply",
			},
			"prediction": {
				Type:        "object",
				Description: "Prediction used as context",
			},
			"model_notice": {
				Type:        "string",
				Description: "Why the prediction could not be used",
			},
		},
	}
}
