// Package config provides YAML-based configuration loading for territorio,
// with .env and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level territorio configuration, loaded from territorio.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Bot       BotConfig       `yaml:"bot"`
	Reminder  ReminderConfig  `yaml:"reminder"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// DatabaseConfig holds connection settings for the ledger database.
// Driver is "mysql" (default) or "sqlite"; for sqlite, Name is the file path.
// DSN, when set, takes precedence over the individual fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN      string `yaml:"dsn" env:"DATABASE_DSN"`
	Host     string `yaml:"host" env:"DATABASE_HOST"`
	Port     int    `yaml:"port" env:"DATABASE_PORT"`
	User     string `yaml:"user" env:"DATABASE_USER"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	Name     string `yaml:"name" env:"DATABASE_NAME"`
}

// RedisConfig holds connection settings for the dialog state store,
// reminder queue and per-phone locks.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// Addr returns the host:port address of the Redis server.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EvolutionConfig points at the Evolution WhatsApp API.
type EvolutionConfig struct {
	APIURL     string `yaml:"api_url" env:"EVOLUTION_API_URL"`
	GlobalKey  string `yaml:"global_key" env:"EVOLUTION_API_GLOBAL_KEY"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// BotConfig tunes the chat dialog.
type BotConfig struct {
	RequestCommand         string `yaml:"request_command" env:"COMANDO_SOLICITAR_TERRITORIO"`
	ReturnCommand          string `yaml:"return_command" env:"COMANDO_DEVOLVER_TERRITORIO"`
	LimitActiveAssignments int    `yaml:"limit_active_assignments" env:"LIMIT_ACTIVE_ASSIGNMENTS"`
	DaysForReminderCheck   int    `yaml:"days_for_reminder_check" env:"DAYS_FOR_REMINDER_CHECK"`
	StateTTLSec            int    `yaml:"state_ttl_sec"`
	SerializePerPhone      bool   `yaml:"serialize_per_phone" env:"BOT_SERIALIZE_PER_PHONE"`
	InboxSize              int    `yaml:"inbox_size"`
}

// ReminderConfig controls the reminder queue poller.
type ReminderConfig struct {
	PollCron  string `yaml:"poll_cron" env:"REMINDER_POLL_CRON"`
	BatchSize int    `yaml:"batch_size"`
}

// AuthConfig holds the admin panel JWT settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTLH int    `yaml:"token_ttl_hours"`
}

// LogConfig selects logger level and output format ("json" or "text").
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Load reads a YAML config file from path, applies .env and environment
// overrides, and returns a validated Config. A missing file is not an error:
// the configuration is then built from the environment alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config, applying environment
// overrides on top of the file values.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3333
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "territorio"
		if c.Database.Driver == "sqlite" {
			c.Database.Name = "territorio.db"
		}
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	c.Evolution.APIURL = strings.TrimRight(c.Evolution.APIURL, "/")
	if c.Evolution.TimeoutSec == 0 {
		c.Evolution.TimeoutSec = 15
	}
	if c.Bot.RequestCommand == "" {
		c.Bot.RequestCommand = "!territorio"
	}
	if c.Bot.ReturnCommand == "" {
		c.Bot.ReturnCommand = "!devolver"
	}
	if c.Bot.LimitActiveAssignments <= 0 {
		c.Bot.LimitActiveAssignments = 2
	}
	if c.Bot.DaysForReminderCheck <= 0 {
		c.Bot.DaysForReminderCheck = 15
	}
	if c.Bot.StateTTLSec <= 0 {
		c.Bot.StateTTLSec = 300
	}
	if c.Bot.InboxSize <= 0 {
		c.Bot.InboxSize = 256
	}
	if c.Reminder.PollCron == "" {
		c.Reminder.PollCron = "* * * * *"
	}
	if c.Reminder.BatchSize <= 0 {
		c.Reminder.BatchSize = 50
	}
	if c.Auth.TokenTTLH <= 0 {
		c.Auth.TokenTTLH = 24 * 7
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if c.Evolution.APIURL == "" {
		errs = append(errs, "evolution.api_url is required")
	}
	if strings.EqualFold(c.Bot.RequestCommand, c.Bot.ReturnCommand) {
		errs = append(errs, "bot.request_command and bot.return_command must differ")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
