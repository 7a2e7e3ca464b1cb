package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	Server        ServerConfig             `mapstructure:"server"`
	Model         ModelConfig              `mapstructure:"model"`
	Chatbot       ChatbotConfig            `mapstructure:"chatbot"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Handlers      map[string]HandlerConfig `mapstructure:"handlers"`
	Alerts        AlertsConfig             `mapstructure:"alerts"`
	Observability ObservabilityConfig      `mapstructure:"observability"`
	Logging       LoggingConfig            `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

// ModelConfig locates the persisted classifier and encoder artifacts.
type ModelConfig struct {
	Path              string `mapstructure:"path"`
	EncodersPath      string `mapstructure:"encoders_path"`
	ManifestPath      string `mapstructure:"manifest_path"`
	Format            string `mapstructure:"format"` // forest | onnx
	OnnxSharedLibrary string `mapstructure:"onnx_shared_library"`
	OnnxInputName     string `mapstructure:"onnx_input_name"`
	OnnxOutputName    string `mapstructure:"onnx_output_name"`
	CacheEnabled      bool   `mapstructure:"cache_enabled"`
	CacheTTL          int    `mapstructure:"cache_ttl"` // milliseconds
	WarmOnStartup     bool   `mapstructure:"warm_on_startup"`
	PredictionTimeout int    `mapstructure:"prediction_timeout"` // milliseconds
}

// ChatbotConfig holds both provider credentials. Keys come from the environment.
type ChatbotConfig struct {
	OpenAI      ProviderConfig `mapstructure:"openai"`
	HuggingFace ProviderConfig `mapstructure:"huggingface"`
}

type ProviderConfig struct {
	APIKey           string  `mapstructure:"api_key"`
	Model            string  `mapstructure:"model"`
	BaseURL          string  `mapstructure:"base_url"`
	Timeout          int     `mapstructure:"timeout"` // milliseconds
	MaxTokens        int     `mapstructure:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature"`
	MaxResponseBytes int64   `mapstructure:"max_response_bytes"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	Index     string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HandlerConfig holds the settings shared by every HTTP handler unit.
type HandlerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// AlertsConfig controls maintenance alerts for long-duration predictions.
type AlertsConfig struct {
	Region string `mapstructure:"region"`
	SNS    struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"ses"`
}

// ObservabilityConfig holds metrics and tracing settings.
type ObservabilityConfig struct {
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
