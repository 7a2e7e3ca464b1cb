package chat

import (
	"time"

	"evbot/internal/common/config"
)

const HandlerName = "chat"

// MaxMessageLength bounds a single chat question, in characters.
const MaxMessageLength = 4000

type Config struct {
	Enabled      bool
	Timeout      time.Duration
	MaxBodyBytes int64
}

func LoadConfig(cfg *config.Config) *Config {
	h := config.GetHandlerConfig(cfg, HandlerName)
	return &Config{
		Enabled:      h.Enabled,
		Timeout:      config.GetDuration(h.Timeout),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
}
