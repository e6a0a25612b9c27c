package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = storage.ErrInvalidConfig

// Supported backend names per store kind.
var (
	KVBackends     = []string{"json", "badger"}
	VectorBackends = []string{"nano", "badger"}
	GraphBackends  = []string{"memory", "ladybug", "neo4j"}
)

// Config holds all configuration for the application
type Config struct {
	// WorkingDir is the root under which every namespace is stored
	WorkingDir string `mapstructure:"working_dir"`

	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Storage backend selection
	Storage StorageConfig `mapstructure:"storage"`

	// Vector store configuration
	Vector VectorConfig `mapstructure:"vector"`

	// Graph store configuration
	Graph GraphConfig `mapstructure:"graph"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // color, text, json
}

// StorageConfig selects the implementation of each store kind.
type StorageConfig struct {
	KV     string `mapstructure:"kv"`     // json, badger
	Vector string `mapstructure:"vector"` // nano, badger
	Graph  string `mapstructure:"graph"`  // memory, ladybug, neo4j
}

// VectorConfig holds vector store settings
type VectorConfig struct {
	EmbeddingDim      int     `mapstructure:"embedding_dim"`
	CosineThreshold   float64 `mapstructure:"cosine_threshold"`
	EmbeddingBatchNum int     `mapstructure:"embedding_batch_num"`
}

// GraphConfig holds graph store settings
type GraphConfig struct {
	// Workers bounds the pool that runs durable graph calls
	Workers        int                  `mapstructure:"workers"`
	Ladybug        LadybugConfig        `mapstructure:"ladybug"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LadybugConfig holds embedded graph database settings
type LadybugConfig struct {
	BufferPoolSize    uint64 `mapstructure:"buffer_pool_size"`
	MaxNumThreads     uint64 `mapstructure:"max_num_threads"`
	EnableCompression bool   `mapstructure:"enable_compression"`
	MaxDBSize         uint64 `mapstructure:"max_db_size"`
}

// Neo4jConfig holds server-backed graph database settings
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, none
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ParquetPath string `mapstructure:"parquet_path"`
}

// Load loads configuration from the global viper instance and environment
// variables.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v, which may already hold values read
// from a config file or bound flags.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	if config.Telemetry.ParquetPath == "" {
		config.Telemetry.ParquetPath = filepath.Join(config.WorkingDir, "telemetry")
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("working_dir", "./pathrag_cache")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "color")

	// Storage defaults
	v.SetDefault("storage.kv", "json")
	v.SetDefault("storage.vector", "nano")
	v.SetDefault("storage.graph", "memory")

	// Vector defaults
	v.SetDefault("vector.embedding_dim", 1536)
	v.SetDefault("vector.cosine_threshold", 0.2)
	v.SetDefault("vector.embedding_batch_num", 32)

	// Graph defaults
	v.SetDefault("graph.workers", 4)
	v.SetDefault("graph.ladybug.buffer_pool_size", uint64(1024*1024*1024)) // 1GB
	v.SetDefault("graph.ladybug.max_num_threads", uint64(1))
	v.SetDefault("graph.ladybug.enable_compression", true)
	v.SetDefault("graph.ladybug.max_db_size", uint64(1<<43)) // 8TB
	v.SetDefault("graph.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j.username", "neo4j")
	v.SetDefault("graph.neo4j.database", "neo4j")
	v.SetDefault("graph.circuit_breaker.enabled", false)
	v.SetDefault("graph.circuit_breaker.max_requests", uint32(1))
	v.SetDefault("graph.circuit_breaker.interval", 60)
	v.SetDefault("graph.circuit_breaker.timeout", 30)
	v.SetDefault("graph.circuit_breaker.ready_to_trip_ratio", 0.6)

	// Embedding defaults
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if dir := os.Getenv("PATHRAG_WORKING_DIR"); dir != "" {
		config.WorkingDir = dir
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = apiKey
	}

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Graph.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Graph.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Graph.Neo4j.Password = pass
	}

	if backend := os.Getenv("PATHRAG_GRAPH_STORAGE"); backend != "" {
		config.Storage.Graph = backend
	}
	if workers := os.Getenv("PATHRAG_GRAPH_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Graph.Workers = n
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

// Validate rejects configurations no store can be built from.
func (c *Config) Validate() error {
	if c.WorkingDir == "" {
		return fmt.Errorf("%w: working_dir must be set", ErrInvalidConfig)
	}
	if err := oneOf("storage.kv", c.Storage.KV, KVBackends); err != nil {
		return err
	}
	if err := oneOf("storage.vector", c.Storage.Vector, VectorBackends); err != nil {
		return err
	}
	if err := oneOf("storage.graph", c.Storage.Graph, GraphBackends); err != nil {
		return err
	}
	if c.Vector.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: vector.embedding_dim must be positive, got %d", ErrInvalidConfig, c.Vector.EmbeddingDim)
	}
	if c.Vector.CosineThreshold < -1 || c.Vector.CosineThreshold > 1 {
		return fmt.Errorf("%w: vector.cosine_threshold must be within [-1, 1], got %g", ErrInvalidConfig, c.Vector.CosineThreshold)
	}
	if c.Vector.EmbeddingBatchNum <= 0 {
		return fmt.Errorf("%w: vector.embedding_batch_num must be positive, got %d", ErrInvalidConfig, c.Vector.EmbeddingBatchNum)
	}
	if c.Graph.Workers <= 0 {
		return fmt.Errorf("%w: graph.workers must be positive, got %d", ErrInvalidConfig, c.Graph.Workers)
	}
	if c.Storage.Graph == "neo4j" && c.Graph.Neo4j.URI == "" {
		return fmt.Errorf("%w: graph.neo4j.uri is required for the neo4j backend", ErrInvalidConfig)
	}
	return nil
}

func oneOf(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported %s %q (supported: %v)", ErrInvalidConfig, key, value, allowed)
}
