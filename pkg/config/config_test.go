package config_test

import (
	"path/filepath"
	"testing"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PATHRAG_WORKING_DIR", "")
	t.Setenv("PATHRAG_GRAPH_STORAGE", "")
	t.Setenv("PATHRAG_GRAPH_WORKERS", "")
	t.Setenv("TELEMETRY_PARQUET_PATH", "")
	t.Setenv("NEO4J_URI", "")

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "./pathrag_cache", cfg.WorkingDir)
	assert.Equal(t, "json", cfg.Storage.KV)
	assert.Equal(t, "nano", cfg.Storage.Vector)
	assert.Equal(t, "memory", cfg.Storage.Graph)
	assert.Equal(t, 0.2, cfg.Vector.CosineThreshold)
	assert.Equal(t, 32, cfg.Vector.EmbeddingBatchNum)
	assert.Equal(t, 4, cfg.Graph.Workers)
	assert.Equal(t, uint64(1024*1024*1024), cfg.Graph.Ladybug.BufferPoolSize)
	assert.Equal(t, filepath.Join("./pathrag_cache", "telemetry"), cfg.Telemetry.ParquetPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PATHRAG_WORKING_DIR", "/tmp/rag")
	t.Setenv("PATHRAG_GRAPH_STORAGE", "ladybug")
	t.Setenv("PATHRAG_GRAPH_WORKERS", "8")
	t.Setenv("NEO4J_URI", "bolt://db:7687")

	v := viper.New()
	v.Set("vector.embedding_dim", 384)
	v.Set("storage.kv", "badger")

	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/rag", cfg.WorkingDir)
	assert.Equal(t, "ladybug", cfg.Storage.Graph)
	assert.Equal(t, 8, cfg.Graph.Workers)
	assert.Equal(t, "bolt://db:7687", cfg.Graph.Neo4j.URI)
	assert.Equal(t, 384, cfg.Vector.EmbeddingDim)
	assert.Equal(t, "badger", cfg.Storage.KV)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.LoadFrom(viper.New())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown kv backend", func(c *config.Config) { c.Storage.KV = "redis" }},
		{"unknown vector backend", func(c *config.Config) { c.Storage.Vector = "milvus" }},
		{"unknown graph backend", func(c *config.Config) { c.Storage.Graph = "kuzu" }},
		{"zero dimension", func(c *config.Config) { c.Vector.EmbeddingDim = 0 }},
		{"threshold out of range", func(c *config.Config) { c.Vector.CosineThreshold = 1.5 }},
		{"zero batch", func(c *config.Config) { c.Vector.EmbeddingBatchNum = 0 }},
		{"zero workers", func(c *config.Config) { c.Graph.Workers = 0 }},
		{"empty working dir", func(c *config.Config) { c.WorkingDir = "" }},
		{"neo4j without uri", func(c *config.Config) {
			c.Storage.Graph = "neo4j"
			c.Graph.Neo4j.URI = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}
