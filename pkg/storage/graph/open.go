package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
)

// Open builds the graph store named by cfg.Storage.Graph for namespace.
func Open(ctx context.Context, cfg *config.Config, namespace string, logger *slog.Logger) (storage.GraphStorage, error) {
	var (
		s   storage.GraphStorage
		err error
	)
	switch cfg.Storage.Graph {
	case "memory":
		s, err = NewMemoryStore(cfg.WorkingDir, namespace, logger)
	case "ladybug":
		s, err = OpenLadybug(ctx, cfg, namespace, logger)
	case "neo4j":
		s, err = OpenNeo4j(ctx, cfg, namespace, logger)
	default:
		return nil, fmt.Errorf("%w: graph %q (supported: %v)", storage.ErrUnsupportedBackend, cfg.Storage.Graph, config.GraphBackends)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenLadybug opens the memory graph of namespace and the embedded database
// at <working_dir>/ladybug_<namespace>, and composes them.
func OpenLadybug(ctx context.Context, cfg *config.Config, namespace string, logger *slog.Logger) (*DurableStore, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	dir := storage.NamespacePath(cfg.WorkingDir, storage.KindGraphDurable, namespace, "")
	backend, err := NewLadybugBackend(dir, cfg.Graph.Ladybug, logger)
	if err != nil {
		return nil, err
	}
	return compose(ctx, cfg, namespace, backend, "ladybug", logger)
}

// OpenNeo4j opens the memory graph of namespace and a Neo4j backend scoped
// to it, and composes them.
func OpenNeo4j(ctx context.Context, cfg *config.Config, namespace string, logger *slog.Logger) (*DurableStore, error) {
	backend, err := NewNeo4jBackend(ctx, cfg.Graph.Neo4j, namespace, logger)
	if err != nil {
		return nil, err
	}
	return compose(ctx, cfg, namespace, backend, "neo4j", logger)
}

func compose(ctx context.Context, cfg *config.Config, namespace string, backend storage.DurableBackend, name string, logger *slog.Logger) (*DurableStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mem, err := NewMemoryStore(cfg.WorkingDir, namespace, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	if cfg.Graph.CircuitBreaker.Enabled {
		backend = NewCircuitBreakerBackend(backend, cfg.Graph.CircuitBreaker, name+"_"+namespace, logger)
	}

	// NewDurableStore closes mem and backend itself when it fails.
	return NewDurableStore(ctx, mem, backend, DurableOptions{
		Workers:     cfg.Graph.Workers,
		BackendName: name,
		Logger:      logger,
	})
}
