package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	HTTP     HTTPConfig     `yaml:"http"`
	Telegram TelegramConfig `yaml:"telegram"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisKey    string `yaml:"redis_key"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type CatalogConfig struct {
	ProductsURL   string        `yaml:"products_url"`
	CategoriesURL string        `yaml:"categories_url"`
	Timeout       time.Duration `yaml:"timeout"`
	FeaturedLimit int           `yaml:"featured_limit"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	Debug bool   `yaml:"debug"`
}

// RabbitMQConfig enables tally publishing when URL is set.
type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/votes.db",
			RedisAddr:  "localhost:6379",
			RedisKey:   "votes",
		},
		Catalog: CatalogConfig{
			ProductsURL:   "https://data-dawm.github.io/datum/reseller/products.json",
			CategoriesURL: "https://data-dawm.github.io/datum/reseller/categories.xml",
			Timeout:       10 * time.Second,
			FeaturedLimit: 6,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		RabbitMQ: RabbitMQConfig{
			Queue: "tallies",
		},
	}
}

// Load reads the YAML file at path (if path is non-empty) over the defaults,
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Store.Driver = getenv("LANDING_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.SQLitePath = getenv("DB_PATH", cfg.Store.SQLitePath)
	cfg.Store.RedisAddr = getenv("REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisKey = getenv("REDIS_KEY", cfg.Store.RedisKey)
	cfg.Store.PostgresDSN = getenv("POSTGRES_DSN", cfg.Store.PostgresDSN)

	cfg.Catalog.ProductsURL = getenv("PRODUCTS_URL", cfg.Catalog.ProductsURL)
	cfg.Catalog.CategoriesURL = getenv("CATEGORIES_URL", cfg.Catalog.CategoriesURL)
	cfg.Catalog.Timeout = getduration("FETCH_TIMEOUT", cfg.Catalog.Timeout)
	cfg.Catalog.FeaturedLimit = getint("FEATURED_LIMIT", cfg.Catalog.FeaturedLimit)

	cfg.HTTP.Addr = getenv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Telegram.Token = getenv("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.Debug = getbool("BOT_DEBUG", cfg.Telegram.Debug)

	cfg.RabbitMQ.URL = getenv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.Queue = getenv("RABBITMQ_QUEUE", cfg.RabbitMQ.Queue)
}

func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Driver) {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" || c.Store.RedisKey == "" {
			errs = append(errs, errors.New("store.redis_addr and store.redis_key are required for the redis driver"))
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.Catalog.FeaturedLimit <= 0 {
		errs = append(errs, errors.New("catalog.featured_limit must be positive"))
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, errors.New("catalog.timeout must be positive"))
	}
	if c.RabbitMQ.URL != "" && c.RabbitMQ.Queue == "" {
		errs = append(errs, errors.New("rabbitmq.queue is required when rabbitmq.url is set"))
	}

	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
