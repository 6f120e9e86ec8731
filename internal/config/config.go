package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"slotnik/internal/models"
	"slotnik/internal/timeutil"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Exports    ExportConfig     `yaml:"exports"`
	Businesses []models.Business `yaml:"businesses"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// SchedulingConfig pins the engine constants; all are overridable but carry
// conservative defaults.
type SchedulingConfig struct {
	SlotStepMinutes       int `yaml:"slot_step_minutes"`
	CodeTTLSeconds        int `yaml:"code_ttl_seconds"`
	ResendCooldownSeconds int `yaml:"resend_cooldown_seconds"`
	MaxAdvanceDays        int `yaml:"max_advance_days"`
	DraftTTLSeconds       int `yaml:"draft_ttl_seconds"`
}

func (s SchedulingConfig) CodeTTL() time.Duration {
	return time.Duration(s.CodeTTLSeconds) * time.Second
}

func (s SchedulingConfig) ResendCooldown() time.Duration {
	return time.Duration(s.ResendCooldownSeconds) * time.Second
}

func (s SchedulingConfig) DraftTTL() time.Duration {
	return time.Duration(s.DraftTTLSeconds) * time.Second
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env присутствует только в локальной разработке
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подстановка переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis address is required when redis is enabled")
	}

	return ValidateBusinesses(c.Businesses)
}

// ValidateBusinesses enforces the invariants of the read-only schedule data:
// unique ids and slugs, positive service durations, windows with start < end
// and a real weekday, parseable exception dates.
func ValidateBusinesses(businesses []models.Business) error {
	slugs := make(map[string]bool)
	ids := make(map[int64]bool)

	for _, b := range businesses {
		if b.ID == 0 {
			return fmt.Errorf("business %q has invalid ID 0", b.Slug)
		}
		if b.Slug == "" {
			return fmt.Errorf("business %d has empty slug", b.ID)
		}
		if ids[b.ID] {
			return fmt.Errorf("duplicate business ID: %d", b.ID)
		}
		if slugs[b.Slug] {
			return fmt.Errorf("duplicate business slug: %q", b.Slug)
		}
		ids[b.ID] = true
		slugs[b.Slug] = true

		serviceIDs := make(map[int64]bool)
		for _, s := range b.Services {
			if s.ID == 0 {
				return fmt.Errorf("business %q: service %q has invalid ID 0", b.Slug, s.Name)
			}
			if serviceIDs[s.ID] {
				return fmt.Errorf("business %q: duplicate service ID %d", b.Slug, s.ID)
			}
			serviceIDs[s.ID] = true
			if s.DurationMin <= 0 {
				return fmt.Errorf("business %q: service %q must have a positive duration", b.Slug, s.Name)
			}
		}

		for _, w := range b.Windows {
			if w.Weekday < 0 || w.Weekday > 6 {
				return fmt.Errorf("business %q: window weekday %d out of range", b.Slug, w.Weekday)
			}
			start, err := timeutil.ToMinutes(w.Start)
			if err != nil {
				return fmt.Errorf("business %q: window start: %w", b.Slug, err)
			}
			end, err := timeutil.ToMinutes(w.End)
			if err != nil {
				return fmt.Errorf("business %q: window end: %w", b.Slug, err)
			}
			if start >= end {
				return fmt.Errorf("business %q: window %s-%s must start before it ends", b.Slug, w.Start, w.End)
			}
		}

		for _, d := range b.Exceptions {
			if _, err := timeutil.ParseDate(d); err != nil {
				return fmt.Errorf("business %q: exception date: %w", b.Slug, err)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}

	if c.Scheduling.SlotStepMinutes == 0 {
		c.Scheduling.SlotStepMinutes = models.DefaultSlotStepMinutes
	}
	if c.Scheduling.CodeTTLSeconds == 0 {
		c.Scheduling.CodeTTLSeconds = models.DefaultCodeTTL
	}
	if c.Scheduling.ResendCooldownSeconds == 0 {
		c.Scheduling.ResendCooldownSeconds = models.DefaultResendCooldown
	}
	if c.Scheduling.MaxAdvanceDays == 0 {
		c.Scheduling.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if c.Scheduling.DraftTTLSeconds == 0 {
		c.Scheduling.DraftTTLSeconds = models.DefaultDraftTTL
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
