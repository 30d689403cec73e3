package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override except PORT.
const EnvPrefix = "PORTAL_"

type Config struct {
	Server    Server    `yaml:"server" envPrefix:"SERVER_"`
	Log       Log       `yaml:"log" envPrefix:"LOG_"`
	Store     Store     `yaml:"store" envPrefix:"STORE_"`
	Redis     Redis     `yaml:"redis" envPrefix:"REDIS_"`
	Postgres  Postgres  `yaml:"postgres" envPrefix:"POSTGRES_"`
	Minio     Minio     `yaml:"minio" envPrefix:"MINIO_"`
	Catalog   Catalog   `yaml:"catalog" envPrefix:"CATALOG_"`
	Client    Client    `yaml:"client" envPrefix:"CLIENT_"`
	RateLimit RateLimit `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	CORS      CORS      `yaml:"cors" envPrefix:"CORS_"`
}

type Server struct {
	Port            string `yaml:"port" env:"PORT"`
	ReadTimeout     string `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    string `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type Log struct {
	Level      string `yaml:"level" env:"LEVEL"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// Store selects the profile store backend: file, memory, redis, postgres or minio.
type Store struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type Postgres struct {
	URL string `yaml:"url" env:"URL"`
}

type Minio struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

// Catalog controls where courses are loaded from (static or postgres) and how long they are cached.
type Catalog struct {
	Source string `yaml:"source" env:"SOURCE"`
	TTL    string `yaml:"ttl" env:"TTL"`
}

// Client configures the learner commands.
type Client struct {
	BackendURL  string `yaml:"backend_url" env:"BACKEND_URL"`
	SessionPath string `yaml:"session_path" env:"SESSION_PATH"`
	Timeout     string `yaml:"timeout" env:"TIMEOUT"`
	Outbox      Outbox `yaml:"outbox" envPrefix:"OUTBOX_"`
}

type Outbox struct {
	Capacity     int    `yaml:"capacity" env:"CAPACITY"`
	MaxAttempts  int    `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay    string `yaml:"base_delay" env:"BASE_DELAY"`
	MaxDelay     string `yaml:"max_delay" env:"MAX_DELAY"`
	FlushTimeout string `yaml:"flush_timeout" env:"FLUSH_TIMEOUT"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RPS"`
	Burst int     `yaml:"burst" env:"BURST"`
}

type CORS struct {
	AllowedOrigin string `yaml:"allowed_origin" env:"ALLOWED_ORIGIN"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() Config {
	return Config{
		Server: Server{
			Port:            "5050",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			ShutdownTimeout: "5s",
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Store: Store{
			Driver: "file",
			Path:   "db.json",
		},
		Minio: Minio{
			Bucket: "course-portal",
		},
		Catalog: Catalog{
			Source: "static",
			TTL:    "10m",
		},
		Client: Client{
			SessionPath: ".course-portal/session.json",
			Timeout:     "10s",
			Outbox: Outbox{
				Capacity:     16,
				MaxAttempts:  3,
				BaseDelay:    "200ms",
				MaxDelay:     "5s",
				FlushTimeout: "10s",
			},
		},
		RateLimit: RateLimit{
			RPS:   20,
			Burst: 40,
		},
		CORS: CORS{
			AllowedOrigin: "*",
		},
	}
}

// Load reads YAML config from path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	var platform struct {
		Port string `env:"PORT"`
	}
	if err := env.Parse(&platform); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if platform.Port != "" {
		cfg.Server.Port = platform.Port
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
