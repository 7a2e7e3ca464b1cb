package history

import (
	"evbot/internal/common/logger"
	"evbot/internal/history"
	"evbot/internal/models"
)

type Dependencies struct {
	// Reader is nil when no history backend is enabled.
	Reader history.Reader
	Logger logger.Logger
}

// RecentOutput is the body of GET /api/history/recent.
type RecentOutput struct {
	Limit   int                       `json:"limit"`
	Records []models.PredictionRecord `json:"records"`
}
