package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string `mapstructure:"PORT"`
	AllowedOrigin         string `mapstructure:"ALLOWED_ORIGIN"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	ReportCacheTTLSeconds int    `mapstructure:"REPORT_CACHE_TTL_SECONDS"`
	AuthSecret            string `mapstructure:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	ManagerPIN            string `mapstructure:"MANAGER_PIN"`
	// AuthorizedActorsRaw is a comma separated list of usernames that may
	// perform every operation regardless of role.
	AuthorizedActorsRaw string `mapstructure:"AUTHORIZED_ACTORS"`
	ReportTimezone      string `mapstructure:"REPORT_TIMEZONE"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	LogFormat           string `mapstructure:"LOG_FORMAT"`
	SeedDemoData        bool   `mapstructure:"SEED_DEMO_DATA"`
}

// Load reads configuration from the environment and an optional .env file.
// Secrets have no defaults; startup validation rejects them when unset.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:5173")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REPORT_CACHE_TTL_SECONDS", 3600)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("MANAGER_PIN", "")
	v.SetDefault("AUTHORIZED_ACTORS", "")
	v.SetDefault("REPORT_TIMEZONE", "Africa/Accra")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SEED_DEMO_DATA", true)

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.ManagerPIN = strings.TrimSpace(cfg.ManagerPIN)
	if cfg.ReportCacheTTLSeconds < 1 {
		cfg.ReportCacheTTLSeconds = 3600
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AuthorizedActors() []string {
	actors := make([]string, 0)
	for _, raw := range strings.Split(c.AuthorizedActorsRaw, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name != "" {
			actors = append(actors, name)
		}
	}
	return actors
}

func (c Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}
