package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	KafkaBroker   string        `mapstructure:"KAFKA_BROKER"`
	KafkaTopic    string        `mapstructure:"KAFKA_TOPIC"`
	MailgunDomain string        `mapstructure:"MAILGUN_DOMAIN"`
	MailgunAPIKey string        `mapstructure:"MAILGUN_API_KEY"`
	FromEmail     string        `mapstructure:"FROM_EMAIL"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
	HoursCacheTTL time.Duration `mapstructure:"HOURS_CACHE_TTL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("KAFKA_TOPIC", "appointment-events")
	v.SetDefault("FROM_EMAIL", "no-reply@carebook.local")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("HOURS_CACHE_TTL", "5m")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("KAFKA_BROKER")
	v.BindEnv("KAFKA_TOPIC")
	v.BindEnv("MAILGUN_DOMAIN")
	v.BindEnv("MAILGUN_API_KEY")
	v.BindEnv("FROM_EMAIL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("HOURS_CACHE_TTL")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production requires
// a JWT secret so real authentication is enforced; in development requests
// without a token fall back to an admin identity.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.MailgunAPIKey != "" && c.MailgunDomain == "" {
		return fmt.Errorf("MAILGUN_DOMAIN is required when MAILGUN_API_KEY is set")
	}
	if c.HoursCacheTTL < 0 {
		return fmt.Errorf("HOURS_CACHE_TTL must not be negative")
	}
	return nil
}
