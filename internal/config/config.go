package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCHEDULER_SERVER_PORT.
const EnvPrefix = "SCHEDULER"

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Broker        BrokerConfig        `mapstructure:"broker"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	SMTP          SMTPConfig          `mapstructure:"smtp"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Scheduling    SchedulingConfig    `mapstructure:"scheduling"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	Audit         AuditConfig         `mapstructure:"audit"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" split_words:"true"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	MetricsPath     string        `mapstructure:"metrics_path" split_words:"true"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type DatabaseConfig struct {
	// Driver is memory or postgres.
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" split_words:"true"`
}

type BrokerConfig struct {
	// Type is memory, redis or kafka.
	Type        string `mapstructure:"type"`
	TopicPrefix string `mapstructure:"topic_prefix" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id" split_words:"true"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" split_words:"true"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Subject  string `mapstructure:"subject"`
}

type NotificationsConfig struct {
	OutboundEnabled bool `mapstructure:"outbound_enabled" split_words:"true"`
	// Channel is email or log.
	Channel       string        `mapstructure:"channel"`
	RatePerSecond float64       `mapstructure:"rate_per_second" split_words:"true"`
	Burst         int           `mapstructure:"burst"`
	SendTimeout   time.Duration `mapstructure:"send_timeout" split_words:"true"`
}

type SchedulingConfig struct {
	AllowOffGrid           bool          `mapstructure:"allow_off_grid" split_words:"true"`
	DefaultDurationMinutes int           `mapstructure:"default_duration_minutes" split_words:"true"`
	CatalogCacheTTL        time.Duration `mapstructure:"catalog_cache_ttl" envconfig:"CATALOG_CACHE_TTL"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval  time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" split_words:"true"`
	MaxFailures   int           `mapstructure:"max_failures" split_words:"true"`
	Retention     time.Duration `mapstructure:"retention"`
}

type AuditConfig struct {
	RetentionDays   int           `mapstructure:"retention_days" split_words:"true"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("broker.type", "memory")
	v.SetDefault("broker.topic_prefix", "scheduler.")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")

	v.SetDefault("kafka.group_id", "clinic-scheduler")
	v.SetDefault("kafka.write_timeout", "10s")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.subject", "Appointment update")

	v.SetDefault("notifications.outbound_enabled", false)
	v.SetDefault("notifications.channel", "log")
	v.SetDefault("notifications.rate_per_second", 10)
	v.SetDefault("notifications.burst", 20)
	v.SetDefault("notifications.send_timeout", "10s")

	v.SetDefault("scheduling.allow_off_grid", false)
	v.SetDefault("scheduling.default_duration_minutes", 60)
	v.SetDefault("scheduling.catalog_cache_ttl", "5m")

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", "500ms")
	v.SetDefault("outbox.max_failures", 5)
	v.SetDefault("outbox.retention", "24h")

	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.cleanup_interval", "1h")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
}

// LoadConfig reads config.yml from the usual locations. A missing file is
// not an error; defaults and SCHEDULER_* environment variables still apply.
func LoadConfig() (*Config, error) {
	return load("")
}

// LoadFile reads the given YAML file instead of searching for one.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: want memory or postgres", c.Database.Driver)
	}

	c.Broker.Type = strings.ToLower(c.Broker.Type)
	switch c.Broker.Type {
	case "memory", "redis", "kafka":
	default:
		return fmt.Errorf("invalid broker.type %q: want memory, redis or kafka", c.Broker.Type)
	}
	if c.Broker.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when broker.type is kafka")
	}

	c.Notifications.Channel = strings.ToLower(c.Notifications.Channel)
	switch c.Notifications.Channel {
	case "log", "email":
	default:
		return fmt.Errorf("invalid notifications.channel %q: want email or log", c.Notifications.Channel)
	}
	if c.Notifications.OutboundEnabled && c.Notifications.Channel == "email" && c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required for email notifications")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}
