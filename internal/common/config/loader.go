package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider defaults
const (
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultHuggingFaceModel = "HuggingFaceH4/zephyr-7b-beta"
	DefaultHuggingFaceURL   = "https://router.huggingface.co/v1"
	DefaultMaxTokens        = 400
	DefaultTemperature      = 0.4
)

// Load reads configs/config.yaml, the config.<APP_ENVIRONMENT>.yaml overlay, .env and the environment.
// A missing config file is not an error: every setting has a default or an env override.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Set here rather than in applyDefaults so an explicit 0 survives.
	v.SetDefault("chatbot.openai.temperature", DefaultTemperature)
	v.SetDefault("chatbot.huggingface.temperature", DefaultTemperature)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found in the working directory, its parents or the project root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string settings.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

// overrideEmptyConfig fills settings that are conventionally provided as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Chatbot.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.Chatbot.OpenAI.Model, "OPENAI_MODEL")
	setIfEmpty(&cfg.Chatbot.HuggingFace.APIKey, "HF_API_KEY")
	setIfEmpty(&cfg.Chatbot.HuggingFace.Model, "HF_MODEL")

	setIfEmpty(&cfg.Model.Path, "MODEL_PATH")
	setIfEmpty(&cfg.Model.EncodersPath, "ENCODERS_PATH")
	setIfEmpty(&cfg.Model.OnnxSharedLibrary, "ONNXRUNTIME_SHARED_LIBRARY_PATH")

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Address, "REDIS_ADDRESS")

	if cfg.Server.Address == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Server.Address = ":" + port
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "evbot"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":5000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	// Model defaults
	if cfg.Model.Path == "" {
		cfg.Model.Path = "models/ev_model.json"
	}
	if cfg.Model.EncodersPath == "" {
		cfg.Model.EncodersPath = "models/label_encoders.json"
	}
	if cfg.Model.ManifestPath == "" {
		cfg.Model.ManifestPath = filepath.Join(filepath.Dir(cfg.Model.Path), "manifest.json")
	}
	if cfg.Model.Format == "" {
		cfg.Model.Format = "forest"
	}
	if cfg.Model.OnnxInputName == "" {
		cfg.Model.OnnxInputName = "float_input"
	}
	if cfg.Model.OnnxOutputName == "" {
		cfg.Model.OnnxOutputName = "output_label"
	}
	if cfg.Model.CacheTTL == 0 {
		cfg.Model.CacheTTL = 3600000
	}
	if cfg.Model.PredictionTimeout == 0 {
		cfg.Model.PredictionTimeout = 5000
	}

	// Provider defaults
	applyProviderDefaults(&cfg.Chatbot.OpenAI, DefaultOpenAIModel, DefaultOpenAIBaseURL)
	applyProviderDefaults(&cfg.Chatbot.HuggingFace, DefaultHuggingFaceModel, DefaultHuggingFaceURL)

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "evbot-predictions"
	}

	// Handler defaults
	if cfg.Handlers == nil {
		cfg.Handlers = map[string]HandlerConfig{}
	}
	for key, h := range cfg.Handlers {
		if h.Timeout == 0 {
			h.Timeout = 30000
		}
		cfg.Handlers[key] = h
	}

	if cfg.Alerts.Region == "" {
		cfg.Alerts.Region = "us-east-1"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func applyProviderDefaults(p *ProviderConfig, model, baseURL string) {
	if p.Model == "" {
		p.Model = model
	}
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.Timeout == 0 {
		p.Timeout = 30000
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.MaxResponseBytes == 0 {
		p.MaxResponseBytes = 2 << 20
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Model.Format {
	case "forest", "onnx":
	default:
		return fmt.Errorf("model.format must be forest or onnx, got %q", cfg.Model.Format)
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if (cfg.Database.Redis.Enabled || cfg.Model.CacheEnabled) && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Alerts.SNS.Enabled && cfg.Alerts.SNS.TopicARN == "" {
		return fmt.Errorf("alerts.sns.topic_arn is required")
	}
	if cfg.Alerts.SES.Enabled && (cfg.Alerts.SES.FromEmail == "" || len(cfg.Alerts.SES.ToEmails) == 0) {
		return fmt.Errorf("alerts.ses.from_email and alerts.ses.to_emails are required")
	}

	for _, p := range []ProviderConfig{cfg.Chatbot.OpenAI, cfg.Chatbot.HuggingFace} {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("chatbot temperature must be within [0, 2], got %v", p.Temperature)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetHandlerConfig retrieves handler-specific configuration with fallback to defaults
func GetHandlerConfig(cfg *Config, name string) HandlerConfig {
	if h, exists := cfg.Handlers[name]; exists {
		return h
	}
	return HandlerConfig{Enabled: true, Timeout: 30000}
}

// IsHandlerEnabled checks if a specific handler is enabled
func IsHandlerEnabled(cfg *Config, name string) bool {
	if h, exists := cfg.Handlers[name]; exists {
		return h.Enabled
	}
	return true
}
