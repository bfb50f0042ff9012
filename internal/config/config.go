package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Planner provider selectors
const (
	PlannerGemini    = "gemini"
	PlannerOpenAI    = "openai"
	PlannerHeuristic = "heuristic"
)

// ProvidersConfig groups all downstream provider settings
type ProvidersConfig struct {
	SerpAPI models.ProviderConfig `yaml:"serpapi"`
	Gemini  models.ProviderConfig `yaml:"gemini"`
	OpenAI  models.ProviderConfig `yaml:"openai"`
}

// RetrySettings is the YAML shape of the retry config (delays in ms)
type RetrySettings struct {
	MaxRetries        int     `yaml:"max_retries"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	RateLimitDelayMs  int     `yaml:"rate_limit_delay_ms"`
}

// NotificationsConfig groups outbound notification settings
type NotificationsConfig struct {
	Telegram models.TelegramConfig `yaml:"telegram"`
}

// Config represents the complete application configuration
type Config struct {
	Server        models.ServerConfig `yaml:"server"`
	Cache         models.CacheConfig  `yaml:"cache"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Planner       string              `yaml:"planner"`
	Retry         *RetrySettings      `yaml:"retry,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return &config, nil
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// New creates a new Config instance by loading from the specified config file path
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		submatches := re.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""

		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// RetryConfig resolves the YAML retry settings over the defaults
func (c *Config) RetryConfig() models.RetryConfig {
	cfg := models.DefaultRetryConfig()
	if c.Retry == nil {
		return cfg
	}
	if c.Retry.MaxRetries > 0 {
		cfg.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.BackoffMultiplier > 0 {
		cfg.BackoffMultiplier = c.Retry.BackoffMultiplier
	}
	if c.Retry.InitialDelayMs > 0 {
		cfg.InitialDelay = time.Duration(c.Retry.InitialDelayMs) * time.Millisecond
	}
	if c.Retry.MaxDelayMs > 0 {
		cfg.MaxDelay = time.Duration(c.Retry.MaxDelayMs) * time.Millisecond
	}
	if c.Retry.RateLimitDelayMs > 0 {
		cfg.RateLimitDelay = time.Duration(c.Retry.RateLimitDelayMs) * time.Millisecond
	}
	return cfg
}

// PlannerProvider returns the configured planner, falling back to the
// heuristic when the selected provider has no credentials.
func (c *Config) PlannerProvider() string {
	switch strings.ToLower(c.Planner) {
	case PlannerGemini:
		if c.Providers.Gemini.Configured() {
			return PlannerGemini
		}
	case PlannerOpenAI:
		if c.Providers.OpenAI.Configured() {
			return PlannerOpenAI
		}
	case PlannerHeuristic:
		return PlannerHeuristic
	case "":
		if c.Providers.Gemini.Configured() {
			return PlannerGemini
		}
	}
	return PlannerHeuristic
}

// GetNormalizedLogLevel returns the log level in lowercase for consistent comparison
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(c.Server.LogLevel)
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate checks if all required configuration values are set
func (c *Config) Validate() error {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "server.port")
	}
	if c.Server.AllowedOrigins == "" {
		missing = append(missing, "server.allowed_origins")
	}
	if !c.Providers.SerpAPI.Configured() {
		missing = append(missing, "providers.serpapi.api_key")
	}

	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}

	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required configuration fields: " + strings.Join(e.MissingFields, ", ")
}
