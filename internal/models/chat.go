package models

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string     `json:"message"`
	Payload RawPayload `json:"payload,omitempty"`
}

// ChatResponse always carries a response string; the other fields describe the model context used.
type ChatResponse struct {
	Response    string            `json:"response"`
	Provider    string            `json:"provider,omitempty"`
	Prediction  *PredictionResult `json:"prediction,omitempty"`
	ModelNotice string            `json:"model_notice,omitempty"`
}
