package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	QueueMemory   = "memory"
	QueueRabbitMQ = "rabbitmq"
)

// Config is the full process configuration shared by cmd/api and cmd/worker.
type Config struct {
	Port string

	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	TaxRate        decimal.Decimal
	DefaultCountry string

	LowStockThreshold int

	Fulfillment FulfillmentConfig
	Status      StatusConfig

	RedisURL        string
	CatalogCacheTTL time.Duration

	KafkaBrokers     []string
	KafkaTopicPrefix string

	LogLevel   string
	LogConsole bool
}

// FulfillmentConfig controls the task queue and the worker retry policy.
type FulfillmentConfig struct {
	Concurrency    int
	Attempts       int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	InProcess      bool
	QueueDriver    string
	QueueBuffer    int
	AMQPURL        string
	QueueName      string
}

// StatusConfig controls the order status stream.
type StatusConfig struct {
	PollInterval time.Duration
	MaxPolls     int
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:              "8080",
		TokenTTL:          24 * time.Hour,
		TaxRate:           decimal.Zero,
		DefaultCountry:    "US",
		LowStockThreshold: 5,
		Fulfillment: FulfillmentConfig{
			Concurrency:    4,
			Attempts:       3,
			AttemptTimeout: 60 * time.Second,
			RetryDelay:     time.Second,
			QueueDriver:    QueueMemory,
			QueueBuffer:    256,
			QueueName:      "storefront.fulfillment",
		},
		Status: StatusConfig{
			PollInterval: time.Second,
			MaxPolls:     60,
		},
		CatalogCacheTTL:  30 * time.Second,
		KafkaTopicPrefix: "storefront",
		LogLevel:         "info",
	}
}

type fileConfig struct {
	HTTP struct {
		Port string `toml:"port"`
	} `toml:"http"`
	Database struct {
		URL string `toml:"url"`
	} `toml:"database"`
	Auth struct {
		JWTSecret string `toml:"jwt_secret"`
		TokenTTL  string `toml:"token_ttl"`
	} `toml:"auth"`
	Checkout struct {
		TaxRate        string `toml:"tax_rate"`
		DefaultCountry string `toml:"default_country"`
	} `toml:"checkout"`
	Inventory struct {
		LowStockThreshold int `toml:"low_stock_threshold"`
	} `toml:"inventory"`
	Fulfillment struct {
		Concurrency    int    `toml:"concurrency"`
		Attempts       int    `toml:"attempts"`
		AttemptTimeout string `toml:"attempt_timeout"`
		RetryDelay     string `toml:"retry_delay"`
		InProcess      bool   `toml:"in_process"`
		QueueDriver    string `toml:"queue_driver"`
		QueueBuffer    int    `toml:"queue_buffer"`
		AMQPURL        string `toml:"amqp_url"`
		QueueName      string `toml:"queue_name"`
	} `toml:"fulfillment"`
	Status struct {
		PollInterval string `toml:"poll_interval"`
		MaxPolls     int    `toml:"max_polls"`
	} `toml:"status"`
	Redis struct {
		URL      string `toml:"url"`
		CacheTTL string `toml:"catalog_cache_ttl"`
	} `toml:"redis"`
	Kafka struct {
		Brokers     []string `toml:"brokers"`
		TopicPrefix string   `toml:"topic_prefix"`
	} `toml:"kafka"`
	Log struct {
		Level   string `toml:"level"`
		Console bool   `toml:"console"`
	} `toml:"log"`
}

// Load builds the configuration from defaults, an optional TOML file at path,
// an optional .env file and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("http", "port") {
		cfg.Port = strings.TrimSpace(raw.HTTP.Port)
	}
	if meta.IsDefined("database", "url") {
		cfg.DatabaseURL = strings.TrimSpace(raw.Database.URL)
	}
	if meta.IsDefined("auth", "jwt_secret") {
		cfg.JWTSecret = raw.Auth.JWTSecret
	}
	if meta.IsDefined("auth", "token_ttl") {
		if cfg.TokenTTL, err = parseDuration("auth.token_ttl", raw.Auth.TokenTTL); err != nil {
			return err
		}
	}
	if meta.IsDefined("checkout", "tax_rate") {
		if cfg.TaxRate, err = parseDecimal("checkout.tax_rate", raw.Checkout.TaxRate); err != nil {
			return err
		}
	}
	if meta.IsDefined("checkout", "default_country") {
		cfg.DefaultCountry = strings.TrimSpace(raw.Checkout.DefaultCountry)
	}
	if meta.IsDefined("inventory", "low_stock_threshold") {
		cfg.LowStockThreshold = raw.Inventory.LowStockThreshold
	}

	f := raw.Fulfillment
	if meta.IsDefined("fulfillment", "concurrency") {
		cfg.Fulfillment.Concurrency = f.Concurrency
	}
	if meta.IsDefined("fulfillment", "attempts") {
		cfg.Fulfillment.Attempts = f.Attempts
	}
	if meta.IsDefined("fulfillment", "attempt_timeout") {
		if cfg.Fulfillment.AttemptTimeout, err = parseDuration("fulfillment.attempt_timeout", f.AttemptTimeout); err != nil {
			return err
		}
	}
	if meta.IsDefined("fulfillment", "retry_delay") {
		if cfg.Fulfillment.RetryDelay, err = parseDuration("fulfillment.retry_delay", f.RetryDelay); err != nil {
			return err
		}
	}
	if meta.IsDefined("fulfillment", "in_process") {
		cfg.Fulfillment.InProcess = f.InProcess
	}
	if meta.IsDefined("fulfillment", "queue_driver") {
		cfg.Fulfillment.QueueDriver = strings.ToLower(strings.TrimSpace(f.QueueDriver))
	}
	if meta.IsDefined("fulfillment", "queue_buffer") {
		cfg.Fulfillment.QueueBuffer = f.QueueBuffer
	}
	if meta.IsDefined("fulfillment", "amqp_url") {
		cfg.Fulfillment.AMQPURL = strings.TrimSpace(f.AMQPURL)
	}
	if meta.IsDefined("fulfillment", "queue_name") {
		cfg.Fulfillment.QueueName = strings.TrimSpace(f.QueueName)
	}

	if meta.IsDefined("status", "poll_interval") {
		if cfg.Status.PollInterval, err = parseDuration("status.poll_interval", raw.Status.PollInterval); err != nil {
			return err
		}
	}
	if meta.IsDefined("status", "max_polls") {
		cfg.Status.MaxPolls = raw.Status.MaxPolls
	}

	if meta.IsDefined("redis", "url") {
		cfg.RedisURL = strings.TrimSpace(raw.Redis.URL)
	}
	if meta.IsDefined("redis", "catalog_cache_ttl") {
		if cfg.CatalogCacheTTL, err = parseDuration("redis.catalog_cache_ttl", raw.Redis.CacheTTL); err != nil {
			return err
		}
	}
	if meta.IsDefined("kafka", "brokers") {
		cfg.KafkaBrokers = normalizeList(raw.Kafka.Brokers)
	}
	if meta.IsDefined("kafka", "topic_prefix") {
		cfg.KafkaTopicPrefix = strings.TrimSpace(raw.Kafka.TopicPrefix)
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "console") {
		cfg.LogConsole = raw.Log.Console
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, perr := strconv.Atoi(strings.TrimSpace(v))
			if perr != nil {
				err = fmt.Errorf("parse %s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst, err = parseDuration(key, v)
		}
	}
	flag := func(key string, dst *bool) {
		if err != nil {
			return
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, perr := strconv.ParseBool(strings.TrimSpace(v))
			if perr != nil {
				err = fmt.Errorf("parse %s: %w", key, perr)
				return
			}
			*dst = b
		}
	}

	str("APP_PORT", &cfg.Port)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("JWT_SECRET", &cfg.JWTSecret)
	dur("JWT_TTL", &cfg.TokenTTL)
	if v, ok := lookup("TAX_RATE"); ok && strings.TrimSpace(v) != "" && err == nil {
		cfg.TaxRate, err = parseDecimal("TAX_RATE", v)
	}
	str("DEFAULT_COUNTRY", &cfg.DefaultCountry)
	num("LOW_STOCK_THRESHOLD", &cfg.LowStockThreshold)

	num("FULFILLMENT_CONCURRENCY", &cfg.Fulfillment.Concurrency)
	num("FULFILLMENT_ATTEMPTS", &cfg.Fulfillment.Attempts)
	dur("FULFILLMENT_ATTEMPT_TIMEOUT", &cfg.Fulfillment.AttemptTimeout)
	dur("FULFILLMENT_RETRY_DELAY", &cfg.Fulfillment.RetryDelay)
	flag("FULFILLMENT_IN_PROCESS", &cfg.Fulfillment.InProcess)
	str("QUEUE_DRIVER", &cfg.Fulfillment.QueueDriver)
	cfg.Fulfillment.QueueDriver = strings.ToLower(cfg.Fulfillment.QueueDriver)
	num("QUEUE_BUFFER", &cfg.Fulfillment.QueueBuffer)
	str("AMQP_URL", &cfg.Fulfillment.AMQPURL)
	str("QUEUE_NAME", &cfg.Fulfillment.QueueName)

	dur("STATUS_POLL_INTERVAL", &cfg.Status.PollInterval)
	num("STATUS_MAX_POLLS", &cfg.Status.MaxPolls)

	str("REDIS_URL", &cfg.RedisURL)
	dur("CATALOG_CACHE_TTL", &cfg.CatalogCacheTTL)
	if v, ok := lookup("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = normalizeList(strings.Split(v, ","))
	}
	str("KAFKA_TOPIC_PREFIX", &cfg.KafkaTopicPrefix)
	str("LOG_LEVEL", &cfg.LogLevel)
	flag("LOG_CONSOLE", &cfg.LogConsole)
	return err
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative (got %s)", c.TaxRate)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative (got %d)", c.LowStockThreshold)
	}
	if c.Fulfillment.Concurrency <= 0 {
		return fmt.Errorf("fulfillment concurrency must be > 0 (got %d)", c.Fulfillment.Concurrency)
	}
	if c.Fulfillment.Attempts <= 0 {
		return fmt.Errorf("fulfillment attempts must be > 0 (got %d)", c.Fulfillment.Attempts)
	}
	if c.Fulfillment.AttemptTimeout <= 0 {
		return fmt.Errorf("fulfillment attempt timeout must be > 0")
	}
	switch c.Fulfillment.QueueDriver {
	case QueueMemory:
		if c.Fulfillment.QueueBuffer <= 0 {
			return fmt.Errorf("queue buffer must be > 0 (got %d)", c.Fulfillment.QueueBuffer)
		}
	case QueueRabbitMQ:
		if c.Fulfillment.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required for the rabbitmq queue driver")
		}
	default:
		return fmt.Errorf("unknown queue driver %q", c.Fulfillment.QueueDriver)
	}
	if c.Status.PollInterval <= 0 {
		return fmt.Errorf("status poll interval must be > 0")
	}
	if c.Status.MaxPolls <= 0 {
		return fmt.Errorf("status max polls must be > 0 (got %d)", c.Status.MaxPolls)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func parseDecimal(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
