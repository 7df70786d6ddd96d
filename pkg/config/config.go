// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Ranking, Corpus, Search, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// RankingConfig holds the BM25 parameters fixed for the engine's lifetime.
type RankingConfig struct {
	K1       float64 `yaml:"k1"`
	B        float64 `yaml:"b"`
	Formula  string  `yaml:"formula"`
	Delta    float64 `yaml:"delta"`
	Analyzer string  `yaml:"analyzer"`
}

// CorpusConfig says where the documents are loaded from at startup.
// Source is "file", "postgres" or "sqlite". For "sqlite", Path names the
// database file.
type CorpusConfig struct {
	Source      string        `yaml:"source"`
	Path        string        `yaml:"path"`
	Table       string        `yaml:"table"`
	Column      string        `yaml:"column"`
	OrderBy     string        `yaml:"orderBy"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// SearchConfig controls result limits for the HTTP API.
type SearchConfig struct {
	MaxResults   int `yaml:"maxResults"`
	DefaultLimit int `yaml:"defaultLimit"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
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

// KafkaConfig holds Kafka broker and topic settings for search analytics.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`

	// OpTimeout bounds each cache read and write; a slow cache degrades to
	// a miss instead of delaying the search.
	OpTimeout time.Duration `yaml:"opTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
	// SlowThreshold logs any trace at least this long, sampled or not.
	// Zero disables it.
	SlowThreshold time.Duration `yaml:"slowThreshold"`
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
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at engine
// construction or at the first request.
func (c *Config) Validate() error {
	if math.IsNaN(c.Ranking.K1) || c.Ranking.K1 < 0 {
		return fmt.Errorf("ranking.k1 must be >= 0, got %v", c.Ranking.K1)
	}
	if math.IsNaN(c.Ranking.B) || c.Ranking.B < 0 || c.Ranking.B > 1 {
		return fmt.Errorf("ranking.b must be within [0, 1], got %v", c.Ranking.B)
	}
	switch c.Corpus.Source {
	case "file":
		if c.Corpus.Path == "" {
			return fmt.Errorf("corpus.path is required for source %q", c.Corpus.Source)
		}
	case "sqlite":
		if c.Corpus.Path == "" {
			return fmt.Errorf("corpus.path is required for source %q", c.Corpus.Source)
		}
		fallthrough
	case "postgres":
		if c.Corpus.Table == "" || c.Corpus.Column == "" {
			return fmt.Errorf("corpus.table and corpus.column are required for source %q", c.Corpus.Source)
		}
		// Document ids are row positions, so the row order must be fixed.
		if c.Corpus.OrderBy == "" {
			return fmt.Errorf("corpus.orderBy is required for source %q", c.Corpus.Source)
		}
	default:
		return fmt.Errorf("unknown corpus.source %q", c.Corpus.Source)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("search limits must be positive (defaultLimit=%d, maxResults=%d)",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	if c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit %d exceeds search.maxResults %d",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Ranking: RankingConfig{
			K1:       1.5,
			B:        0.75,
			Formula:  "okapi",
			Delta:    1.0,
			Analyzer: "simple",
		},
		Corpus: CorpusConfig{
			Source:      "file",
			Path:        "data/corpus.txt",
			Column:      "body",
			OrderBy:     "id",
			LoadTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:   100,
			DefaultLimit: 5,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ranking",
			User:            "ranking",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "ranking-analytics",
			Topics: KafkaTopics{
				SearchEvents: "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			CacheTTL:  60 * time.Second,
			OpTimeout: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// envOverrides maps BM_* variables onto config fields. Each setter parses
// its value; a malformed value fails Load instead of being ignored.
func envOverrides(cfg *Config) map[string]func(string) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	list := func(dst *[]string) func(string) error {
		return func(v string) error {
			*dst = nil
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					*dst = append(*dst, item)
				}
			}
			return nil
		}
	}
	integer := func(dst *int) func(string) error {
		return func(v string) (err error) { *dst, err = strconv.Atoi(v); return err }
	}
	float := func(dst *float64) func(string) error {
		return func(v string) (err error) { *dst, err = strconv.ParseFloat(v, 64); return err }
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) (err error) { *dst, err = strconv.ParseBool(v); return err }
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) (err error) { *dst, err = time.ParseDuration(v); return err }
	}

	return map[string]func(string) error{
		"BM_SERVER_PORT":         integer(&cfg.Server.Port),
		"BM_SERVER_CORS_ORIGINS": list(&cfg.Server.CORSOrigins),
		"BM_RANKING_K1":          float(&cfg.Ranking.K1),
		"BM_RANKING_B":           float(&cfg.Ranking.B),
		"BM_RANKING_FORMULA":     str(&cfg.Ranking.Formula),
		"BM_RANKING_DELTA":       float(&cfg.Ranking.Delta),
		"BM_RANKING_ANALYZER":    str(&cfg.Ranking.Analyzer),
		"BM_CORPUS_SOURCE":       str(&cfg.Corpus.Source),
		"BM_CORPUS_PATH":         str(&cfg.Corpus.Path),
		"BM_CORPUS_TABLE":        str(&cfg.Corpus.Table),
		"BM_CORPUS_COLUMN":       str(&cfg.Corpus.Column),
		"BM_SEARCH_MAX_RESULTS":  integer(&cfg.Search.MaxResults),
		"BM_POSTGRES_HOST":       str(&cfg.Postgres.Host),
		"BM_POSTGRES_PORT":       integer(&cfg.Postgres.Port),
		"BM_POSTGRES_DATABASE":   str(&cfg.Postgres.Database),
		"BM_POSTGRES_USER":       str(&cfg.Postgres.User),
		"BM_POSTGRES_PASSWORD":   str(&cfg.Postgres.Password),
		"BM_KAFKA_ENABLED":       boolean(&cfg.Kafka.Enabled),
		"BM_KAFKA_BROKERS":       list(&cfg.Kafka.Brokers),
		"BM_REDIS_ENABLED":       boolean(&cfg.Redis.Enabled),
		"BM_REDIS_ADDR":          str(&cfg.Redis.Addr),
		"BM_REDIS_PASSWORD":      str(&cfg.Redis.Password),
		"BM_REDIS_CACHE_TTL":     duration(&cfg.Redis.CacheTTL),
		"BM_LOGGING_LEVEL":       str(&cfg.Logging.Level),
		"BM_LOGGING_FORMAT":      str(&cfg.Logging.Format),
		"BM_TRACING_ENABLED":     boolean(&cfg.Tracing.Enabled),
		"BM_TRACING_SAMPLE_RATE": float(&cfg.Tracing.SampleRate),
		"BM_METRICS_PORT":        integer(&cfg.Metrics.Port),
	}
}

func applyEnvOverrides(cfg *Config) error {
	for name, set := range envOverrides(cfg) {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := set(v); err != nil {
			return fmt.Errorf("environment %s=%q: %w", name, v, err)
		}
	}
	return nil
}
