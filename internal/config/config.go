package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the essay grading API.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseDriver    string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	NATSSubject       string
	JWTSecret         string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITimeout     time.Duration
	DetectorPrefix    int
	PromptCacheTTL    time.Duration
	AIRateLimitPerMin int
	AllowOrigins      string
	SeedCatalog       bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ESSAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Essay Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("nats.subject", "essay.workflow")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 4000)
	v.SetDefault("openai.timeout", "2m")
	v.SetDefault("detector.prefix_runes", 1000)
	v.SetDefault("prompt_cache.ttl", "5m")
	v.SetDefault("rate_limit.ai_per_minute", 30)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("seed.catalog", true)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	timeout, err := parseDuration(v.GetString("openai.timeout"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid openai timeout: %w", err)
	}

	ttl, err := parseDuration(v.GetString("prompt_cache.ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid prompt cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseDriver:    strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		NATSSubject:       v.GetString("nats.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		OpenAIAPIKey:      v.GetString("openai.api_key"),
		OpenAIBaseURL:     v.GetString("openai.base_url"),
		OpenAIModel:       v.GetString("openai.model"),
		OpenAIMaxTokens:   v.GetInt("openai.max_tokens"),
		OpenAITimeout:     timeout,
		DetectorPrefix:    v.GetInt("detector.prefix_runes"),
		PromptCacheTTL:    ttl,
		AIRateLimitPerMin: v.GetInt("rate_limit.ai_per_minute"),
		AllowOrigins:      v.GetString("cors.allow_origins"),
		SeedCatalog:       v.GetBool("seed.catalog"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.DetectorPrefix <= 0 {
		cfg.DetectorPrefix = 1000
	}
	if cfg.OpenAIMaxTokens <= 0 {
		cfg.OpenAIMaxTokens = 4000
	}
	if cfg.AIRateLimitPerMin <= 0 {
		cfg.AIRateLimitPerMin = 30
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
