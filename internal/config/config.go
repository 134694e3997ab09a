package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Assessment struct {
		TTL string `yaml:"ttl"`
	} `yaml:"assessment"`
	Session struct {
		TickInterval         string `yaml:"tick_interval"`
		SecondsPerAssessment int    `yaml:"seconds_per_assessment"`
	} `yaml:"session"`
	Backend struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"backend"`
}

// Load reads YAML config from path and applies ASSESSMENT_* overrides.
// A missing file yields an environment-only config.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "ASSESSMENT_SERVER_PORT")
	setString(&cfg.Redis.Addr, "ASSESSMENT_REDIS_ADDR")
	setString(&cfg.Redis.Password, "ASSESSMENT_REDIS_PASSWORD")
	setString(&cfg.Redis.TTL, "ASSESSMENT_REDIS_TTL")
	setString(&cfg.Postgres.URL, "ASSESSMENT_POSTGRES_URL")
	setString(&cfg.RabbitMQ.URL, "ASSESSMENT_RABBITMQ_URL")
	setString(&cfg.RabbitMQ.Queue, "ASSESSMENT_RABBITMQ_QUEUE")
	setString(&cfg.Assessment.TTL, "ASSESSMENT_CACHE_TTL")
	setString(&cfg.Session.TickInterval, "ASSESSMENT_SESSION_TICK_INTERVAL")
	setString(&cfg.Backend.URL, "ASSESSMENT_BACKEND_URL")
	setString(&cfg.Backend.Timeout, "ASSESSMENT_BACKEND_TIMEOUT")
	if err := setInt(&cfg.Redis.DB, "ASSESSMENT_REDIS_DB"); err != nil {
		return err
	}
	return setInt(&cfg.Session.SecondsPerAssessment, "ASSESSMENT_SESSION_SECONDS_PER_ASSESSMENT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
