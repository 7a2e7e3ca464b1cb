// cmd/evbot/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"evbot/internal/alerts"
	"evbot/internal/chatbot"
	"evbot/internal/common/config"
	"evbot/internal/common/logger"
	"evbot/internal/common/observability"
	"evbot/internal/handlers"
	"evbot/internal/handlers/chat"
	historyhandler "evbot/internal/handlers/history"
	"evbot/internal/handlers/predict"
	"evbot/internal/prediction"
	"evbot/internal/server"
	"evbot/internal/web"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console", "stderr")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting evbot...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tracing, err := observability.NewTracing(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, cfg.Observability.SampleRatio)
	if err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}
	obs := observability.New(cfg.Observability.ServiceName).WithTracing(tracing)
	defer obs.Shutdown()

	ctx := context.Background()

	infra, err := connect(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("backend connection failed", zap.Error(err))
	}
	defer infra.Close()

	a, err := newApp(ctx, cfg, infra, obs, log)
	if err != nil {
		zapLog.Fatal("application setup failed", zap.Error(err))
	}
	defer a.assets.Close()
	zapLog.Info("Chat provider selected", zap.String("provider", a.bot.Provider().String()))

	srv := server.New(cfg.Server, a.router, log)
	errCh := srv.Start()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("HTTP server stopped", zap.Error(err))
		}
	}

	_ = srv.Shutdown()
	zapLog.Info("evbot stopped")
}

type app struct {
	assets *prediction.AssetCache
	bot    *chatbot.Bot
	router http.Handler
}

// newApp builds the prediction pipeline, history, alerts, chatbot and router on top of the
// connected backends.
func newApp(ctx context.Context, cfg *config.Config, infra *backends, obs *observability.Observability, log logger.Logger) (*app, error) {
	// --- Prediction pipeline ---
	assets := prediction.NewAssetCache(prediction.NewFileLoader(cfg.Model, log), log)
	if cfg.Model.WarmOnStartup {
		assets.Warm(ctx)
	}

	service := prediction.NewService(assets, log,
		prediction.WithStageRecorder(obs),
		prediction.WithTracer(obs),
		prediction.WithTimeout(config.GetDuration(cfg.Model.PredictionTimeout)),
	)
	var predictor prediction.Predictor = service
	if cfg.Model.CacheEnabled && infra.redis != nil {
		predictor = prediction.NewCachedPredictor(service, infra.redis, config.GetDuration(cfg.Model.CacheTTL), log)
		log.Info("Prediction cache enabled", map[string]interface{}{"ttlMs": cfg.Model.CacheTTL})
	}

	// --- History and alerts ---
	recorder, reader, err := newHistory(ctx, infra, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("history setup: %w", err)
	}

	publisher, mailer, err := newAlertChannels(ctx, cfg.Alerts)
	if err != nil {
		return nil, fmt.Errorf("alert channel setup: %w", err)
	}
	notifier := alerts.NewNotifier(cfg.Alerts, publisher, mailer, log)
	reporter := handlers.NewReporter(recorder, notifier, log)

	// --- Chatbot ---
	bot := chatbot.NewBot(
		chatbot.InitialSelection(cfg.Chatbot.OpenAI.APIKey, cfg.Chatbot.HuggingFace.APIKey),
		chatbot.NewFactory(cfg.Chatbot),
		predictor,
		log,
		chatbot.WithTurnRecorder(obs),
		chatbot.WithTracer(obs),
	)

	// --- Handlers ---
	pages, err := web.NewPages()
	if err != nil {
		return nil, err
	}
	var groups []handlers.Group

	if pc := predict.LoadConfig(cfg); pc.Enabled {
		groups = append(groups, predict.NewHandler(pc, predict.Dependencies{
			Predictor: predictor,
			Assets:    assets,
			Pages:     pages,
			Reporter:  reporter,
			Logger:    log,
		}).Routes())
	}
	if cc := chat.LoadConfig(cfg); cc.Enabled {
		groups = append(groups, chat.NewHandler(cc, chat.Dependencies{
			Bot:      bot,
			Pages:    pages,
			Reporter: reporter,
			Logger:   log,
		}).Routes())
	}
	if hc := historyhandler.LoadConfig(cfg); hc.Enabled {
		groups = append(groups, historyhandler.NewHandler(hc, historyhandler.Dependencies{
			Reader: reader,
			Logger: log,
		}).Routes())
	}

	router := server.NewRouter(server.RouterOptions{
		Readiness:      assets,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
		Logger:         log,
		Groups:         groups,
	})

	return &app{assets: assets, bot: bot, router: router}, nil
}
