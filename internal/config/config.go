// Package config provides configuration loading and validation for the
// application. Values come from an optional YAML file and from environment
// variables (a .env file is loaded early by the CLI layer).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/polygraphy/digest/internal/logger"
)

// Defaults for policy values. The thresholds mirror the retirement policy the
// lifecycle sweep enforces; changing them is a deliberate operator decision.
const (
	defaultServerAddress   = ":8060"
	defaultServerTimeout   = 30 * time.Second
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultRedisAddress    = "localhost:6379"

	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodySize  = 10 << 20 // 10 MiB
	defaultUserAgent    = "polygraphy-digest/1.0"

	defaultTickInterval        = time.Minute
	defaultMaintenanceInterval = time.Hour

	defaultArchiveAfter   = 30 * 24 * time.Hour
	defaultDeleteAfter    = 90 * 24 * time.Hour
	defaultDeleteBatch    = 50
	defaultMarkerTTL      = 24 * time.Hour
	defaultMarkerKey      = "digest:lifecycle:last_run"
	defaultStreamName     = "digest:tasks"
	defaultConsumerGroup  = "digest-workers"
	defaultBlockTimeout   = 5 * time.Second
	defaultReadBatchSize  = 10
	defaultClaimMinIdle   = 5 * time.Minute
	defaultMaxDeliveries  = 5
	defaultWorkerPoolSize = 4
	defaultJobTimeout     = 5 * time.Minute
	defaultDrainTimeout   = 30 * time.Second
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" mapstructure:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis" mapstructure:"redis"`
	Crawler       CrawlerConfig       `yaml:"crawler" mapstructure:"crawler"`
	Scheduler     SchedulerConfig     `yaml:"scheduler" mapstructure:"scheduler"`
	Lifecycle     LifecycleConfig     `yaml:"lifecycle" mapstructure:"lifecycle"`
	Queue         QueueConfig         `yaml:"queue" mapstructure:"queue"`
	Worker        WorkerConfig        `yaml:"worker" mapstructure:"worker"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig holds the HTTP API server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	DBName          string        `yaml:"dbname" mapstructure:"dbname"`
	SSLMode         string        `yaml:"sslmode" mapstructure:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// ElasticsearchConfig holds the search index client configuration.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses" mapstructure:"addresses"`
	Username  string   `yaml:"username" mapstructure:"username"`
	Password  string   `yaml:"password" mapstructure:"password"`
	// ArticleIndex and ProductIndex name the projection indices.
	ArticleIndex string `yaml:"article_index" mapstructure:"article_index"`
	ProductIndex string `yaml:"product_index" mapstructure:"product_index"`
}

// RedisConfig holds the Redis connection configuration. Redis backs both the
// task queue and the lifecycle daily-run marker.
type RedisConfig struct {
	Address  string `yaml:"address" mapstructure:"address"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// CrawlerConfig holds fetch behaviour configuration.
type CrawlerConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	MaxBodySize  int64         `yaml:"max_body_size" mapstructure:"max_body_size"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	// InsecureSkipVerify disables TLS certificate verification when fetching
	// source content. Some registered sources serve expired certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// SchedulerConfig holds the tick cadences of the scheduler process.
type SchedulerConfig struct {
	TickInterval        time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval" mapstructure:"maintenance_interval"`
}

// LifecycleConfig holds the retirement policy for aged articles.
type LifecycleConfig struct {
	ArchiveAfter    time.Duration `yaml:"archive_after" mapstructure:"archive_after"`
	DeleteAfter     time.Duration `yaml:"delete_after" mapstructure:"delete_after"`
	DeleteBatchSize int           `yaml:"delete_batch_size" mapstructure:"delete_batch_size"`
	MarkerKey       string        `yaml:"marker_key" mapstructure:"marker_key"`
	MarkerTTL       time.Duration `yaml:"marker_ttl" mapstructure:"marker_ttl"`
}

// QueueConfig holds Redis Streams task queue configuration.
type QueueConfig struct {
	Stream        string        `yaml:"stream" mapstructure:"stream"`
	ConsumerGroup string        `yaml:"consumer_group" mapstructure:"consumer_group"`
	BlockTimeout  time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ReadBatchSize int64         `yaml:"read_batch_size" mapstructure:"read_batch_size"`
	ClaimMinIdle  time.Duration `yaml:"claim_min_idle" mapstructure:"claim_min_idle"`
	MaxDeliveries int64         `yaml:"max_deliveries" mapstructure:"max_deliveries"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	JobTimeout   time.Duration `yaml:"job_timeout" mapstructure:"job_timeout"`
	DrainTimeout time.Duration `yaml:"drain_timeout" mapstructure:"drain_timeout"`
}

// Load reads configuration from the given file (optional) and the
// environment, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults cover everything.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return errors.New("elasticsearch.addresses is required")
	}
	if c.Lifecycle.DeleteAfter <= c.Lifecycle.ArchiveAfter {
		return errors.New("lifecycle.delete_after must be larger than lifecycle.archive_after")
	}
	if c.Worker.PoolSize <= 0 {
		return errors.New("worker.pool_size must be positive")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if len(cfg.Elasticsearch.Addresses) == 0 {
		cfg.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Elasticsearch.ArticleIndex == "" {
		cfg.Elasticsearch.ArticleIndex = "polygraphy_articles"
	}
	if cfg.Elasticsearch.ProductIndex == "" {
		cfg.Elasticsearch.ProductIndex = "polygraphy_products"
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Crawler.FetchTimeout == 0 {
		cfg.Crawler.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Crawler.MaxBodySize == 0 {
		cfg.Crawler.MaxBodySize = defaultMaxBodySize
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = defaultUserAgent
	}
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = defaultTickInterval
	}
	if cfg.Scheduler.MaintenanceInterval == 0 {
		cfg.Scheduler.MaintenanceInterval = defaultMaintenanceInterval
	}
	if cfg.Lifecycle.ArchiveAfter == 0 {
		cfg.Lifecycle.ArchiveAfter = defaultArchiveAfter
	}
	if cfg.Lifecycle.DeleteAfter == 0 {
		cfg.Lifecycle.DeleteAfter = defaultDeleteAfter
	}
	if cfg.Lifecycle.DeleteBatchSize == 0 {
		cfg.Lifecycle.DeleteBatchSize = defaultDeleteBatch
	}
	if cfg.Lifecycle.MarkerKey == "" {
		cfg.Lifecycle.MarkerKey = defaultMarkerKey
	}
	if cfg.Lifecycle.MarkerTTL == 0 {
		cfg.Lifecycle.MarkerTTL = defaultMarkerTTL
	}
	if cfg.Queue.Stream == "" {
		cfg.Queue.Stream = defaultStreamName
	}
	if cfg.Queue.ConsumerGroup == "" {
		cfg.Queue.ConsumerGroup = defaultConsumerGroup
	}
	if cfg.Queue.BlockTimeout == 0 {
		cfg.Queue.BlockTimeout = defaultBlockTimeout
	}
	if cfg.Queue.ReadBatchSize == 0 {
		cfg.Queue.ReadBatchSize = defaultReadBatchSize
	}
	if cfg.Queue.ClaimMinIdle == 0 {
		cfg.Queue.ClaimMinIdle = defaultClaimMinIdle
	}
	if cfg.Queue.MaxDeliveries == 0 {
		cfg.Queue.MaxDeliveries = defaultMaxDeliveries
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = defaultWorkerPoolSize
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = defaultJobTimeout
	}
	if cfg.Worker.DrainTimeout == 0 {
		cfg.Worker.DrainTimeout = defaultDrainTimeout
	}
}
