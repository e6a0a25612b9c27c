package pathrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/embedder"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/storage/graph"
	"github.com/soundprediction/pathrag/pkg/storage/kv"
	"github.com/soundprediction/pathrag/pkg/storage/vector"
	"github.com/soundprediction/pathrag/pkg/telemetry"
	"github.com/soundprediction/pathrag/pkg/types"
)

// Namespaces opened by NewClient.
const (
	NamespaceFullDocs         = "full_docs"
	NamespaceTextChunks       = "text_chunks"
	NamespaceLLMResponseCache = "llm_response_cache"
	NamespaceEntities         = "entities"
	NamespaceRelationships    = "relationships"
	NamespaceChunks           = "chunks"
	NamespaceGraph            = "chunk_entity_relation"

	// EntityNameField is the payload field of entity vectors.
	EntityNameField = "entity_name"
)

var (
	// ErrNoRetriever is returned by Query when the client has no Retriever.
	ErrNoRetriever = errors.New("no retriever configured")
	// ErrNotDurable is returned by Rehydrate and Verify on a memory-only graph.
	ErrNotDurable = errors.New("graph store has no durable backend")
)

// Stores groups the namespaces of one working directory.
type Stores struct {
	FullDocs         storage.KVStorage
	TextChunks       storage.KVStorage
	LLMResponseCache storage.KVStorage

	Entities      storage.VectorStorage
	Relationships storage.VectorStorage
	Chunks        storage.VectorStorage

	Graph storage.GraphStorage
}

// store is the part every namespace shares.
type store interface {
	IndexDoneCallback(ctx context.Context) error
	Close() error
}

// all returns every opened store in open order.
func (s *Stores) all() []store {
	var out []store
	if s.FullDocs != nil {
		out = append(out, s.FullDocs)
	}
	if s.TextChunks != nil {
		out = append(out, s.TextChunks)
	}
	if s.LLMResponseCache != nil {
		out = append(out, s.LLMResponseCache)
	}
	if s.Entities != nil {
		out = append(out, s.Entities)
	}
	if s.Relationships != nil {
		out = append(out, s.Relationships)
	}
	if s.Chunks != nil {
		out = append(out, s.Chunks)
	}
	if s.Graph != nil {
		out = append(out, s.Graph)
	}
	return out
}

// Client owns the stores of a working directory and hands them to the
// retrieval collaborator.
type Client struct {
	cfg       *config.Config
	stores    *Stores
	embedder  embedder.Client
	retriever Retriever
	telemetry *telemetry.ParquetHandler
	logger    *slog.Logger
}

var (
	_ Querier         = (*Client)(nil)
	_ EntityManager   = (*Client)(nil)
	_ StoreMaintainer = (*Client)(nil)
)

// NewClient validates cfg and opens every namespace under cfg.WorkingDir.
// emb may be nil when all vectors are supplied precomputed; retriever may be
// nil when Query is not used.
func NewClient(ctx context.Context, cfg *config.Config, emb embedder.Client, retriever Retriever, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:       cfg,
		embedder:  emb,
		retriever: retriever,
	}

	if cfg.Telemetry.Enabled {
		h, err := telemetry.NewParquetHandler(logger.Handler(), cfg.Telemetry.ParquetPath)
		if err != nil {
			logger.Warn("Failed to initialize error tracking", "error", err)
		} else {
			logger = slog.New(h)
			c.telemetry = h
			logger.Info("Error tracking enabled", "path", cfg.Telemetry.ParquetPath)
		}
	}
	c.logger = logger

	stores, err := openStores(ctx, cfg, emb, logger)
	if err != nil {
		c.closeTelemetry()
		return nil, err
	}
	c.stores = stores

	logger.Info("PathRAG storage initialized",
		"working_dir", cfg.WorkingDir,
		"kv", cfg.Storage.KV,
		"vector", cfg.Storage.Vector,
		"graph", cfg.Storage.Graph)
	return c, nil
}

func openStores(ctx context.Context, cfg *config.Config, emb embedder.Client, logger *slog.Logger) (_ *Stores, err error) {
	s := &Stores{}
	defer func() {
		if err != nil {
			for _, st := range s.all() {
				st.Close()
			}
		}
	}()

	if s.FullDocs, err = kv.Open(cfg, NamespaceFullDocs, logger); err != nil {
		return nil, err
	}
	if s.TextChunks, err = kv.Open(cfg, NamespaceTextChunks, logger); err != nil {
		return nil, err
	}
	if s.LLMResponseCache, err = kv.Open(cfg, NamespaceLLMResponseCache, logger); err != nil {
		return nil, err
	}

	if s.Entities, err = vector.Open(cfg, NamespaceEntities, emb, []string{EntityNameField}, logger); err != nil {
		return nil, err
	}
	relationFields := []string{vector.SourceIDField, vector.TargetIDField}
	if s.Relationships, err = vector.Open(cfg, NamespaceRelationships, emb, relationFields, logger); err != nil {
		return nil, err
	}
	if s.Chunks, err = vector.Open(cfg, NamespaceChunks, emb, nil, logger); err != nil {
		return nil, err
	}

	if s.Graph, err = graph.Open(ctx, cfg, NamespaceGraph, logger); err != nil {
		return nil, err
	}
	return s, nil
}

// NewEmbedder builds the embedding client described by cfg.Embedding. It
// returns nil without error when no API key is configured.
func NewEmbedder(cfg *config.Config) (embedder.Client, error) {
	if cfg.Embedding.APIKey == "" {
		return nil, nil
	}
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "", "openai":
		dims := cfg.Embedding.Dimensions
		if dims == 0 {
			dims = cfg.Vector.EmbeddingDim
		}
		return embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embedder.Config{
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: dims,
			BatchSize:  cfg.Vector.EmbeddingBatchNum,
		}), nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", storage.ErrUnsupportedBackend, cfg.Embedding.Provider)
	}
}

// Stores returns the opened namespaces.
func (c *Client) Stores() *Stores {
	return c.stores
}

// Config returns the configuration the client was opened with.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// EntityKey returns the graph id used for an entity name: the name upper
// cased and wrapped in double quotes. Keys already in that form are returned
// unchanged.
func EntityKey(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(strings.TrimPrefix(name, `"`), `"`)
	return `"` + strings.ToUpper(name) + `"`
}

func (c *Client) closeTelemetry() error {
	if c.telemetry == nil {
		return nil
	}
	if err := c.telemetry.Close(); err != nil {
		return err
	}
	if files := c.telemetry.Files(); len(files) > 0 {
		c.logger.Info("Telemetry error logs written", "files", len(files), "dir", c.cfg.Telemetry.ParquetPath)
	}
	return nil
}

// Close closes every store and flushes telemetry. Unflushed writes are not
// persisted; call IndexDone first.
func (c *Client) Close() error {
	var errs []error
	if c.stores != nil {
		for _, st := range c.stores.all() {
			if err := st.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.closeTelemetry(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// QueryParamWithDefaults fills zero fields of p from types.DefaultQueryParam.
func QueryParamWithDefaults(p types.QueryParam) types.QueryParam {
	def := types.DefaultQueryParam()
	if p.Mode == "" {
		p.Mode = def.Mode
	}
	if p.ResponseType == "" {
		p.ResponseType = def.ResponseType
	}
	if p.TopK == 0 {
		p.TopK = def.TopK
	}
	if p.MaxTokenForTextUnit == 0 {
		p.MaxTokenForTextUnit = def.MaxTokenForTextUnit
	}
	if p.MaxTokenForGlobalContext == 0 {
		p.MaxTokenForGlobalContext = def.MaxTokenForGlobalContext
	}
	if p.MaxTokenForLocalContext == 0 {
		p.MaxTokenForLocalContext = def.MaxTokenForLocalContext
	}
	return p
}
