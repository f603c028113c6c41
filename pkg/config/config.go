package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CART_"

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	GRPC struct {
		Addr string `koanf:"addr"`
	} `koanf:"grpc"`

	HTTP struct {
		Addr         string        `koanf:"addr"`
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
		CORSOrigins  []string      `koanf:"cors_origins"`
	} `koanf:"http"`

	// CartService is where the gateway reaches cartd.
	CartService struct {
		Target  string        `koanf:"target"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"cart_service"`

	Storage struct {
		Backend string `koanf:"backend"`
		Key     string `koanf:"key"`

		File struct {
			Dir string `koanf:"dir"`
		} `koanf:"file"`

		Redis struct {
			Addr     string        `koanf:"addr"`
			Password string        `koanf:"password"`
			DB       int           `koanf:"db"`
			TTL      time.Duration `koanf:"ttl"`
		} `koanf:"redis"`

		Postgres struct {
			DSN   string `koanf:"dsn"`
			Table string `koanf:"table"`
		} `koanf:"postgres"`

		DynamoDB struct {
			Table    string `koanf:"table"`
			Region   string `koanf:"region"`
			Endpoint string `koanf:"endpoint"`
		} `koanf:"dynamodb"`
	} `koanf:"storage"`

	// Relay publishes cart changes on the storage.redis connection.
	Relay struct {
		Enabled bool   `koanf:"enabled"`
		Channel string `koanf:"channel"`
	} `koanf:"relay"`

	Session struct {
		IdleTimeout      time.Duration `koanf:"idle_timeout"`
		SweepInterval    time.Duration `koanf:"sweep_interval"`
		FlushConcurrency int           `koanf:"flush_concurrency"`
	} `koanf:"session"`

	Checkout struct {
		OrderURL string        `koanf:"order_url"`
		Timeout  time.Duration `koanf:"timeout"`
	} `koanf:"checkout"`
}

var defaults = map[string]any{
	"app.name":                  "tenant-cart",
	"app.env":                   "dev",
	"app.log_level":             "info",
	"grpc.addr":                 ":8081",
	"http.addr":                 ":8080",
	"http.read_timeout":         "15s",
	"http.write_timeout":        "0s",
	"http.idle_timeout":         "60s",
	"cart_service.target":       "localhost:8081",
	"cart_service.timeout":      "5s",
	"storage.backend":           BackendMemory,
	"storage.key":               "tenant-cart.collection",
	"storage.postgres.table":    "cart_collections",
	"storage.dynamodb.region":   "us-east-1",
	"relay.channel":             "tenant-cart.changes",
	"session.idle_timeout":      "30m",
	"session.sweep_interval":    "1m",
	"session.flush_concurrency": 8,
	"checkout.timeout":          "10s",
}

// Load reads defaults, then <dir>/base.yaml, then <dir>/<env>.yaml, then
// CART_ environment variables. Nested keys use "__", e.g.
// CART_STORAGE__BACKEND=redis. An empty dir skips the files.
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("default %s: %w", key, err)
		}
	}

	if dir != "" {
		if err := k.Load(file.Provider(filepath.Join(dir, "base.yaml")), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load base: %w", err)
		}
		if envName != "" {
			// the per-environment overlay may be absent, but not broken
			overlay := filepath.Join(dir, envName+".yaml")
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s overlay: %w", envName, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.GRPC.Addr == "" {
		return fmt.Errorf("grpc.addr required")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key required")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.File.Dir == "" {
			return fmt.Errorf("storage.file.dir required for file backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr required for redis backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn required for postgres backend")
		}
	case BackendDynamoDB:
		if c.Storage.DynamoDB.Table == "" {
			return fmt.Errorf("storage.dynamodb.table required for dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	if c.Relay.Enabled && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("relay needs storage.redis.addr")
	}
	return nil
}
