package predict

import (
	"context"

	"evbot/internal/common/logger"
	"evbot/internal/handlers"
	"evbot/internal/prediction"
	"evbot/internal/web"
)

// AssetSource exposes the loaded encoders so the form can offer the fitted categories.
// *prediction.AssetCache satisfies it.
type AssetSource interface {
	Status() prediction.AssetStatus
	Get(ctx context.Context) (*prediction.Assets, error)
}

type Dependencies struct {
	Predictor prediction.Predictor
	Assets    AssetSource
	Pages     *web.Pages
	Reporter  *handlers.Reporter
	Logger    logger.Logger
}
