package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete application configuration.
// It is resolved exactly once at process start; the gateway consumes the
// resulting values and never reads the environment itself.
type Config struct {
	Environment   string
	Server        ServerConfig
	Providers     ProvidersConfig
	Routing       RoutingConfig
	Observability ObservabilityConfig

	// DatabaseURL, when set, enables the Postgres call-record sink
	DatabaseURL string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProvidersConfig holds the configuration for every known backend
type ProvidersConfig struct {
	DeepSeek ProviderConfig
	OpenAI   ProviderConfig
	Local    ProviderConfig
}

// ProviderConfig holds the startup settings for one backend
type ProviderConfig struct {
	Name           string
	BaseURL        string
	APIKey         string
	Model          string
	Enabled        bool
	DefaultTimeout time.Duration
}

// RoutingConfig holds the declarative route policy inputs
type RoutingConfig struct {
	// PrimaryProvider is the cloud provider forming the default route
	PrimaryProvider string `validate:"oneof=deepseek openai"`

	// LocalPurposes lists purposes routed [local, primary] when the
	// local provider is enabled
	LocalPurposes []string

	// CloudFieldsOnlyTimeout bounds propose_fields_only attempts;
	// zero disables the purpose timeout
	CloudFieldsOnlyTimeout time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"required"`
	LogFormat string // json or text
}

// New creates a Config by loading environment variables once
func New() (*Config, error) {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load(".env")

	localEnabled := getEnvAsBool("LLM_LOCAL_ENABLED", false) &&
		getEnv("LLM_LOCAL_BASE_URL", "") != "" &&
		getEnv("LLM_LOCAL_MODEL", "") != ""

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			DeepSeek: ProviderConfig{
				Name:    "deepseek",
				BaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
				APIKey:  getEnv("DEEPSEEK_API_KEY", ""),
				Model:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
				Enabled: getEnv("DEEPSEEK_API_KEY", "") != "",
			},
			OpenAI: ProviderConfig{
				Name:    "openai",
				BaseURL: getEnv("OPENAI_BASE_URL", ""),
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				Enabled: getEnv("OPENAI_API_KEY", "") != "",
			},
			Local: ProviderConfig{
				Name:           "local",
				BaseURL:        getEnv("LLM_LOCAL_BASE_URL", ""),
				APIKey:         getEnv("LLM_LOCAL_API_KEY", ""),
				Model:          getEnv("LLM_LOCAL_MODEL", ""),
				Enabled:        localEnabled,
				DefaultTimeout: getEnvAsMillis("LLM_LOCAL_TIMEOUT_MS", 0),
			},
		},
		Routing: RoutingConfig{
			PrimaryProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "deepseek")),
			LocalPurposes:          getEnvAsList("LLM_LOCAL_PURPOSES", nil),
			CloudFieldsOnlyTimeout: getEnvAsMillis("LLM_CLOUD_TIMEOUT_MS_FIELDS_ONLY", 0),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks structural constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	// The primary must actually be usable in production; in development a
	// keyless process can still start (the route resolves empty at call time).
	if c.IsProduction() {
		primary := c.ProviderByName(c.Routing.PrimaryProvider)
		if primary == nil || !primary.Enabled {
			return fmt.Errorf("primary provider %q has no credential configured", c.Routing.PrimaryProvider)
		}
	}

	if c.Providers.Local.Enabled && c.Providers.Local.Model == "" {
		return fmt.Errorf("local provider enabled without a model")
	}

	return nil
}

// ProviderByName returns the configuration block for a provider name
func (c *Config) ProviderByName(name string) *ProviderConfig {
	switch name {
	case c.Providers.DeepSeek.Name:
		return &c.Providers.DeepSeek
	case c.Providers.OpenAI.Name:
		return &c.Providers.OpenAI
	case c.Providers.Local.Name:
		return &c.Providers.Local
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsMillis reads an integer millisecond value (legacy *_MS variables)
func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return time.Duration(value) * time.Millisecond
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
