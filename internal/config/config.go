package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Env                     string        `mapstructure:"ENV"`
	DatabaseURL             string        `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32         `mapstructure:"DB_MIN_CONNS"`
	HTTPPort                string        `mapstructure:"HTTP_PORT"`
	GRPCPort                string        `mapstructure:"GRPC_PORT"`
	WebPort                 string        `mapstructure:"WEB_PORT"`
	SessionBackend          string        `mapstructure:"SESSION_BACKEND"`
	RedisAddr               string        `mapstructure:"REDIS_ADDR"`
	RedisPassword           string        `mapstructure:"REDIS_PASSWORD"`
	SessionTTL              time.Duration `mapstructure:"SESSION_TTL"`
	SessionReapInterval     time.Duration `mapstructure:"SESSION_REAP_INTERVAL"`
	StoreTimeout            time.Duration `mapstructure:"STORE_TIMEOUT"`
	StrictStatusTransitions bool          `mapstructure:"STRICT_STATUS_TRANSITIONS"`
	AdminTokenSecret        string        `mapstructure:"ADMIN_TOKEN_SECRET"`
	LoginRateRPS            float64       `mapstructure:"LOGIN_RATE_RPS"`
	LoginRateBurst          int           `mapstructure:"LOGIN_RATE_BURST"`
	CORSOrigins             []string      `mapstructure:"-"`
}

var keys = []string{
	"ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"HTTP_PORT", "GRPC_PORT", "WEB_PORT",
	"SESSION_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD",
	"SESSION_TTL", "SESSION_REAP_INTERVAL", "STORE_TIMEOUT",
	"STRICT_STATUS_TRANSITIONS", "ADMIN_TOKEN_SECRET",
	"LOGIN_RATE_RPS", "LOGIN_RATE_BURST", "CORS_ORIGINS",
}

// Load reads .env (if present) into the environment, then the environment
// into a Config with defaults applied.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("WEB_PORT", "8080")
	v.SetDefault("SESSION_BACKEND", BackendPostgres)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_REAP_INTERVAL", "10m")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("STRICT_STATUS_TRANSITIONS", false)
	v.SetDefault("LOGIN_RATE_RPS", 5)
	v.SetDefault("LOGIN_RATE_BURST", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.SessionBackend {
	case BackendPostgres, BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SessionReapInterval <= 0 {
		return fmt.Errorf("SESSION_REAP_INTERVAL must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1 and DB_MIN_CONNS between 0 and DB_MAX_CONNS")
	}
	if c.LoginRateRPS <= 0 || c.LoginRateBurst < 1 {
		return fmt.Errorf("LOGIN_RATE_RPS and LOGIN_RATE_BURST must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
