package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPath is the optional TOML file read on startup.
const DefaultConfigPath = "config.toml"

// Config holds everything the server needs at boot.
type Config struct {
	Port          string `koanf:"port"`
	SiteURL       string `koanf:"site_url"`
	DatabaseURL   string `koanf:"database_url"`
	SessionSecret string `koanf:"session_secret"`
	JWTSecret     string `koanf:"jwt_secret"`

	AllowedOrigins []string `koanf:"allowed_origins"`

	Redis    Redis    `koanf:"redis"`
	Log      Log      `koanf:"log"`
	SMTP     SMTP     `koanf:"smtp"`
	Voting   Voting   `koanf:"voting"`
	Trending Trending `koanf:"trending"`
}

// Redis is optional; an empty Addr switches rate limiting and caching to in-process.
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Log configures the zap logger and its rolling file.
type Log struct {
	Level      string `koanf:"level"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// SMTP is used by the follower mail sink. Delivery is disabled unless all fields are set.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Enabled reports whether every SMTP field is present.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.Port != "" && s.Username != "" && s.Password != "" && s.From != ""
}

// Voting holds the anti-abuse limits applied to vote toggles.
type Voting struct {
	PerMinute        int `koanf:"per_minute"`
	PerHour          int `koanf:"per_hour"`
	PerDay           int `koanf:"per_day"`
	DailyRewardLimit int `koanf:"daily_reward_limit"`
}

// Trending controls the cached trending list.
type Trending struct {
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	Limit           int           `koanf:"limit"`
}

// Load reads .env, then the optional TOML file, then environment overrides.
// A missing .env or TOML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Defaults returns a configuration suitable for local development.
func Defaults() *Config {
	return &Config{
		Port:          "8080",
		SiteURL:       "http://localhost:8080",
		DatabaseURL:   "host=localhost user=postgres password=postgres dbname=knowledgehub port=5432 sslmode=disable TimeZone=UTC",
		SessionSecret: "secret_key_change_me",

		AllowedOrigins: []string{"*"},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Voting: Voting{
			PerMinute:        5,
			PerHour:          50,
			PerDay:           200,
			DailyRewardLimit: 20,
		},
		Trending: Trending{
			RefreshInterval: 5 * time.Minute,
			CacheTTL:        time.Minute,
			Limit:           30,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.SiteURL, "SITE_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SessionSecret, "SESSION_SECRET")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Path, "LOG_PATH")

	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASS")
	setString(&cfg.SMTP.From, "SMTP_FROM")

	setInt(&cfg.Voting.PerMinute, "VOTE_LIMIT_PER_MINUTE")
	setInt(&cfg.Voting.PerHour, "VOTE_LIMIT_PER_HOUR")
	setInt(&cfg.Voting.PerDay, "VOTE_LIMIT_PER_DAY")
	setInt(&cfg.Voting.DailyRewardLimit, "VOTE_DAILY_REWARD_LIMIT")

	if v := os.Getenv("TRENDING_REFRESH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Trending.RefreshInterval = d
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
