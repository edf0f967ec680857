package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"session-scheduler/internal/models"
	"session-scheduler/internal/policy"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	defaultConfigPath = "config/local.yaml"
)

type Config struct {
	Env           string `yaml:"env" env:"ENV" env-default:"local"`
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StoragePath   string `yaml:"storage_path" env:"STORAGE_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	HTTPServer    `yaml:"http_server"`
	Scheduling    Scheduling      `yaml:"scheduling"`
	Policies      policy.Policies `yaml:"policies"`
	Effects       Effects         `yaml:"effects"`
	RateLimit     RateLimit       `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Scheduling struct {
	RequestTTL           time.Duration `yaml:"request_ttl" env-default:"48h"`
	AvailabilityCacheTTL time.Duration `yaml:"availability_cache_ttl" env-default:"1m"`
	IdempotencyTTL       time.Duration `yaml:"idempotency_ttl" env-default:"24h"`
	Cutoffs              policy.Guards `yaml:"cutoffs"`
}

type Effects struct {
	Workers       int           `yaml:"workers" env-default:"4"`
	QueueSize     int           `yaml:"queue_size" env-default:"256"`
	JobTimeout    time.Duration `yaml:"job_timeout" env-default:"10s"`
	PaymentsURL   string        `yaml:"payments_url" env:"PAYMENTS_URL"`
	RoomsURL      string        `yaml:"rooms_url" env:"ROOMS_URL"`
	NotifyChannel string        `yaml:"notify_channel" env-default:"session-notifications"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
}

// DefaultPolicies are used for a role whose policy is not configured.
func DefaultPolicies() policy.Policies {
	return policy.Policies{
		Mentor: models.CancellationPolicy{
			PartialRefundPercentage:          100,
			LateCancellationRefundPercentage: 100,
		},
		Mentee: models.CancellationPolicy{
			FreeCancellationHours:            24,
			CancellationCutoffHours:          2,
			PartialRefundPercentage:          50,
			LateCancellationRefundPercentage: 0,
		},
	}
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defaults := DefaultPolicies()
	if cfg.Policies.Mentor == (models.CancellationPolicy{}) {
		cfg.Policies.Mentor = defaults.Mentor
	}
	if cfg.Policies.Mentee == (models.CancellationPolicy{}) {
		cfg.Policies.Mentee = defaults.Mentee
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.StoragePath == "" {
			return errors.New("storage_path is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}

	if err := policy.Validate(c.Policies.Mentor); err != nil {
		return fmt.Errorf("mentor policy: %w", err)
	}
	if err := policy.Validate(c.Policies.Mentee); err != nil {
		return fmt.Errorf("mentee policy: %w", err)
	}
	if c.Scheduling.RequestTTL <= 0 {
		return errors.New("scheduling.request_ttl must be positive")
	}

	return nil
}
