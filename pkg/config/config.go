// Package config loads and validates service configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Index, Query, Kafka, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Index   IndexConfig   `yaml:"index"`
	Query   QueryConfig   `yaml:"query"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	SearchPath      string        `yaml:"searchPath"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig selects and configures the blob-store backend holding chunk
// bytes, manifests, and the default-results snapshot.
type StoreConfig struct {
	// Backend is one of "redis", "postgres", "s3", "memory".
	Backend  string         `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// PostgresConfig holds PostgreSQL connection parameters for the key/value
// blob table.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// S3Config holds settings for an S3-compatible blob store.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

// IndexConfig names the storage keys of the build-time index artifacts.
type IndexConfig struct {
	TermPrefix      string `yaml:"termPrefix"`
	DocPrefix       string `yaml:"docPrefix"`
	TermManifestKey string `yaml:"termManifestKey"`
	DocManifestKey  string `yaml:"docManifestKey"`
	DefaultKey      string `yaml:"defaultKey"`
}

// QueryConfig holds the build-time query limits. These are validated before
// any chunk fetch is issued.
type QueryConfig struct {
	MaxTerms      int `yaml:"maxTerms"`
	MaxQueryBytes int `yaml:"maxQueryBytes"`
	PageSize      int `yaml:"pageSize"`
}

// KafkaConfig holds Kafka broker and topic settings for query analytics.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "redis", "postgres", "s3", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Query.PageSize <= 0 {
		return fmt.Errorf("query.pageSize must be positive, got %d", c.Query.PageSize)
	}
	if c.Query.MaxTerms <= 0 {
		return fmt.Errorf("query.maxTerms must be positive, got %d", c.Query.MaxTerms)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			SearchPath:      "/search",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Backend: "redis",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				Password: "",
				DB:       0,
				PoolSize: 10,
			},
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "edgequery",
				User:            "edgequery",
				Password:        "localdev",
				SSLMode:         "disable",
				Table:           "blobs",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
			S3: S3Config{
				Endpoint: "localhost:9000",
				Region:   "us-east-1",
				Bucket:   "edgequery-index",
				UseSSL:   false,
			},
		},
		Index: IndexConfig{
			TermPrefix:      "term_",
			DocPrefix:       "doc_",
			TermManifestKey: "manifest_terms",
			DocManifestKey:  "manifest_docs",
			DefaultKey:      "default",
		},
		Query: QueryConfig{
			MaxTerms:      50,
			MaxQueryBytes: 1024,
			PageSize:      20,
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "query-events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads EQ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EQ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("EQ_SERVER_SEARCH_PATH"); v != "" {
		cfg.Server.SearchPath = v
	}
	if v := os.Getenv("EQ_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("EQ_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("EQ_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("EQ_POSTGRES_HOST"); v != "" {
		cfg.Store.Postgres.Host = v
	}
	if v := os.Getenv("EQ_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.Port = port
		}
	}
	if v := os.Getenv("EQ_POSTGRES_DATABASE"); v != "" {
		cfg.Store.Postgres.Database = v
	}
	if v := os.Getenv("EQ_POSTGRES_USER"); v != "" {
		cfg.Store.Postgres.User = v
	}
	if v := os.Getenv("EQ_POSTGRES_PASSWORD"); v != "" {
		cfg.Store.Postgres.Password = v
	}
	if v := os.Getenv("EQ_S3_ENDPOINT"); v != "" {
		cfg.Store.S3.Endpoint = v
	}
	if v := os.Getenv("EQ_S3_BUCKET"); v != "" {
		cfg.Store.S3.Bucket = v
	}
	if v := os.Getenv("EQ_S3_ACCESS_KEY"); v != "" {
		cfg.Store.S3.AccessKey = v
	}
	if v := os.Getenv("EQ_S3_SECRET_KEY"); v != "" {
		cfg.Store.S3.SecretKey = v
	}
	if v := os.Getenv("EQ_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("EQ_QUERY_MAX_TERMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.MaxTerms = n
		}
	}
	if v := os.Getenv("EQ_QUERY_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.PageSize = n
		}
	}
	if v := os.Getenv("EQ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EQ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
