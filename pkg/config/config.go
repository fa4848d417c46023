package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"marketpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		RetentionDays    int           `yaml:"retention_days" default:"7"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"marketpulse"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"marketpulse.candles.refreshed"`
		Compression  string   `yaml:"compression" default:"gzip"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
	} `yaml:"kafka"`
	Providers struct {
		Primary   string        `yaml:"primary" default:"alpaca" validate:"oneof=alpaca finnhub"`
		Secondary string        `yaml:"secondary" default:"finnhub" validate:"oneof=alpaca finnhub"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		Alpaca    struct {
			APIKey     string        `yaml:"api_key"`
			APISecret  string        `yaml:"api_secret"`
			DataURL    string        `yaml:"data_url"`
			RateLimit  int           `yaml:"rate_limit" default:"200"`
			RateWindow time.Duration `yaml:"rate_window" default:"1m"`
		} `yaml:"alpaca"`
		Finnhub struct {
			APIKey     string        `yaml:"api_key"`
			BaseURL    string        `yaml:"base_url" default:"https://finnhub.io/api/v1"`
			RateLimit  int           `yaml:"rate_limit" default:"60"`
			RateWindow time.Duration `yaml:"rate_window" default:"1m"`
		} `yaml:"finnhub"`
	} `yaml:"providers"`
	Universe struct {
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"5m"`
		HotSetKey       string        `yaml:"hot_set_key" default:"pipelines:executions:tickers"`
		WarmSetKey      string        `yaml:"warm_set_key" default:"pipelines:configured:tickers"`
	} `yaml:"universe"`
	Ingest struct {
		Interval    time.Duration `yaml:"interval" default:"60s"`
		Lookback    int           `yaml:"lookback" default:"500" validate:"gt=0"`
		Parallelism int           `yaml:"parallelism" default:"4" validate:"gt=0"`
	} `yaml:"ingest"`
	Seeder struct {
		StartupDelay time.Duration `yaml:"startup_delay" default:"30s"`
		HistoryDays  int           `yaml:"history_days" default:"400" validate:"gt=0"`
		DailyHour    int           `yaml:"daily_hour" default:"1" validate:"gte=0,lte=23"`
		DailyMinute  int           `yaml:"daily_minute" default:"30" validate:"gte=0,lte=59"`
	} `yaml:"seeder"`
	Indicators struct {
		Interval   time.Duration `yaml:"interval" default:"5m"`
		Timeframes []string      `yaml:"timeframes" default:"[\"1h\",\"4h\",\"1d\"]"`
	} `yaml:"indicators"`
	Quotes struct {
		HotInterval  time.Duration `yaml:"hot_interval" default:"60s"`
		WarmInterval time.Duration `yaml:"warm_interval" default:"5m"`
	} `yaml:"quotes"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Providers.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		c.Providers.Alpaca.APISecret = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka.enabled")
	}
	if c.Providers.Primary == c.Providers.Secondary {
		return fmt.Errorf("providers.primary and providers.secondary must differ")
	}
	return nil
}
