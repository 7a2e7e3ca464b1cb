package models

// Alert is a maintenance notification raised for a long-duration prediction.
type Alert struct {
	ID         string                 `json:"id"`
	Channel    string                 `json:"channel"` // "sns", "ses"
	Status     string                 `json:"status"`  // "sent", "failed", "disabled"
	ResultType ResultType             `json:"resultType"`
	Subject    string                 `json:"subject"`
	Body       string                 `json:"body"`
	MessageID  string                 `json:"messageId,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	SentAt     string                 `json:"sentAt"`
}
