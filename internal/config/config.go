// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"BILLING_LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"BILLING_LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                        // enable sampling in prod
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"BILLING_HTTP_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	FrontendURL     string        `yaml:"frontend_url" env:"BILLING_FRONTEND_URL"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"BILLING_DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"BILLING_REDIS_URL"`
	Password string        `yaml:"password" env:"BILLING_REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaystackConfig struct {
	SecretKey string        `yaml:"secret_key" env:"BILLING_PAYSTACK_SECRET_KEY"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ExchangeConfig struct {
	URL      string        `yaml:"url" env:"BILLING_EXCHANGE_URL"`
	Fallback string        `yaml:"fallback"` // NGN per USD when every source fails
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	Provider    string `yaml:"provider" env:"BILLING_EMAIL_PROVIDER"` // postmark|log
	ServerToken string `yaml:"server_token" env:"BILLING_POSTMARK_TOKEN"`
	From        string `yaml:"from" env:"BILLING_EMAIL_FROM"`
	FromName    string `yaml:"from_name"`
	Stream      string `yaml:"stream"`
}

type SchedulerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Timezone         string        `yaml:"timezone"`
	RemindersCron    string        `yaml:"reminders_cron"`
	MaintenanceCron  string        `yaml:"maintenance_cron"`
	ExchangeRateCron string        `yaml:"exchange_rate_cron"`
	ReminderWindow   int           `yaml:"reminder_window_days"`
	ReminderCooldown time.Duration `yaml:"reminder_cooldown"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
	Workers          int           `yaml:"workers"`
	UseLocks         bool          `yaml:"use_locks"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"BILLING_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type AMQPConfig struct {
	URL      string `yaml:"url" env:"BILLING_AMQP_URL"`
	Exchange string `yaml:"exchange"`
}

type TelegramConfig struct {
	Token  string `yaml:"token" env:"BILLING_TELEGRAM_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"BILLING_TELEGRAM_CHAT_ID"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Paystack  PaystackConfig  `yaml:"paystack"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Telegram  TelegramConfig  `yaml:"telegram"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional when every required value
// comes from the environment), then applies .env and BILLING_* overrides.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.ReadTimeout = orDefault(cfg.HTTP.ReadTimeout, 15*time.Second)
	cfg.HTTP.WriteTimeout = orDefault(cfg.HTTP.WriteTimeout, 30*time.Second)
	cfg.HTTP.RequestTimeout = orDefault(cfg.HTTP.RequestTimeout, 20*time.Second)
	cfg.HTTP.ShutdownTimeout = orDefault(cfg.HTTP.ShutdownTimeout, 10*time.Second)
	if cfg.HTTP.FrontendURL == "" {
		cfg.HTTP.FrontendURL = "http://localhost:3000"
	}
	cfg.HTTP.FrontendURL = strings.TrimRight(cfg.HTTP.FrontendURL, "/")
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = orDefault(cfg.Redis.TTL, 72*time.Hour)

	if cfg.Paystack.BaseURL == "" {
		cfg.Paystack.BaseURL = "https://api.paystack.co"
	}
	cfg.Paystack.Timeout = orDefault(cfg.Paystack.Timeout, 10*time.Second)

	if cfg.Exchange.URL == "" {
		cfg.Exchange.URL = "https://api.exchangerate-api.com/v4/latest/USD"
	}
	if cfg.Exchange.Fallback == "" {
		cfg.Exchange.Fallback = "1600"
	}
	cfg.Exchange.CacheTTL = orDefault(cfg.Exchange.CacheTTL, 6*time.Hour)
	cfg.Exchange.Timeout = orDefault(cfg.Exchange.Timeout, 10*time.Second)

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "log"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Billing"
	}
	if cfg.Email.Stream == "" {
		cfg.Email.Stream = "outbound"
	}

	if cfg.Scheduler.RemindersCron == "" {
		cfg.Scheduler.RemindersCron = "0 9 * * *"
	}
	if cfg.Scheduler.MaintenanceCron == "" {
		cfg.Scheduler.MaintenanceCron = "0 0 * * *"
	}
	if cfg.Scheduler.ExchangeRateCron == "" {
		cfg.Scheduler.ExchangeRateCron = "0 */6 * * *"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Scheduler.ReminderWindow <= 0 {
		cfg.Scheduler.ReminderWindow = 3
	}
	cfg.Scheduler.ReminderCooldown = orDefault(cfg.Scheduler.ReminderCooldown, 24*time.Hour)
	cfg.Scheduler.JobTimeout = orDefault(cfg.Scheduler.JobTimeout, 10*time.Minute)
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}

	cfg.Auth.TokenTTL = orDefault(cfg.Auth.TokenTTL, 7*24*time.Hour)
	if cfg.AMQP.Exchange == "" {
		cfg.AMQP.Exchange = "billing.events"
	}
}

// Validate performs minimal checks on values without a safe default.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 && !c.Runtime.Dev {
		return errors.New("auth.jwt_secret must be at least 32 bytes")
	}
	switch c.Email.Provider {
	case "log":
	case "postmark":
		if c.Email.ServerToken == "" || c.Email.From == "" {
			return errors.New("email.server_token and email.from are required for postmark")
		}
	default:
		return fmt.Errorf("email.provider %q is not supported", c.Email.Provider)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
