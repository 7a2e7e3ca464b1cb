package history

import (
	"time"

	"evbot/internal/common/config"
)

const HandlerName = "history"

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	h := config.GetHandlerConfig(cfg, HandlerName)
	return &Config{
		Enabled: h.Enabled,
		Timeout: config.GetDuration(h.Timeout),
	}
}
