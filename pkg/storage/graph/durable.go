package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/telemetry"
	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/soundprediction/pathrag/pkg/utils"
)

const (
	defaultWorkers     = 4
	poolReleaseTimeout = 30 * time.Second
)

// DurableOptions configures a DurableStore.
type DurableOptions struct {
	// Workers bounds the number of concurrent backend calls.
	Workers int

	// BackendName labels the backend in logs and stats.
	BackendName string

	Logger *slog.Logger
}

// DurableStore is a MemoryStore whose mutations are also written through to
// a DurableBackend. Read operations are served by the embedded MemoryStore.
type DurableStore struct {
	*MemoryStore

	backend     storage.DurableBackend
	backendName string
	pool        *ants.Pool
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ storage.GraphStorage = (*DurableStore)(nil)

// NewDurableStore composes mem and backend. It ensures the backend schema and,
// when mem holds no nodes, rebuilds mem from the backend. The store takes
// ownership of both and closes them on Close, or before returning an error
// when construction fails.
func NewDurableStore(ctx context.Context, mem *MemoryStore, backend storage.DurableBackend, opts DurableOptions) (*DurableStore, error) {
	if mem == nil || backend == nil {
		return nil, fmt.Errorf("%w: durable graph store needs a memory store and a backend", storage.ErrInvalidConfig)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.BackendName == "" {
		opts.BackendName = "durable"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	abort := func(err error) (*DurableStore, error) {
		mem.Close()
		backend.Close()
		return nil, err
	}

	pool, err := utils.NewPool(opts.Workers)
	if err != nil {
		return abort(fmt.Errorf("failed to create durable graph worker pool: %w", err))
	}

	s := &DurableStore{
		MemoryStore: mem,
		backend:     backend,
		backendName: opts.BackendName,
		pool:        pool,
		logger:      opts.Logger.With("namespace", mem.Namespace(), "store", "graph_durable", "backend", opts.BackendName),
	}

	if err := s.run(ctx, backend.EnsureSchema); err != nil {
		pool.Release()
		return abort(fmt.Errorf("failed to ensure durable graph schema: %w", err))
	}

	count, err := mem.NodeCount(ctx)
	if err != nil {
		pool.Release()
		return abort(err)
	}
	if count == 0 {
		if err := s.Rehydrate(ctx); err != nil {
			pool.Release()
			return abort(err)
		}
	}
	return s, nil
}

// run executes fn on the worker pool and waits for it.
func (s *DurableStore) run(ctx context.Context, fn func(context.Context) error) error {
	_, err := utils.SubmitAndWait(ctx, s.pool, func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (s *DurableStore) write(ctx context.Context, op, key string, fn func(context.Context) error) error {
	if err := s.run(ctx, fn); err != nil {
		logCtx := telemetry.WithOperation(telemetry.WithNamespace(ctx, s.Namespace()), op)
		s.logger.ErrorContext(logCtx, "Durable graph write failed; memory and backend may diverge", "op", op, "key", key, "error", err)
		return &storage.DurableWriteError{Op: op, Key: key, Err: err}
	}
	return nil
}

// UpsertNode writes the node to memory, then to the backend.
func (s *DurableStore) UpsertNode(ctx context.Context, node types.Node) error {
	if err := s.MemoryStore.UpsertNode(ctx, node); err != nil {
		return err
	}
	return s.write(ctx, "upsert_node", node.ID, func(ctx context.Context) error {
		return s.backend.UpsertNode(ctx, node)
	})
}

// UpsertEdge writes the edge to memory, then to the backend. An edge with an
// endpoint missing from memory is rejected before either half changes. An
// endpoint missing only from the backend surfaces as a DurableWriteError
// wrapping storage.ErrMissingEndpoint.
func (s *DurableStore) UpsertEdge(ctx context.Context, edge types.Edge) error {
	if err := s.MemoryStore.UpsertEdge(ctx, edge); err != nil {
		return err
	}
	edge = edge.WithDefaults()
	return s.write(ctx, "upsert_edge", edge.Source+"->"+edge.Target, func(ctx context.Context) error {
		return s.backend.UpsertEdge(ctx, edge)
	})
}

// DeleteNode removes the node from memory, then from the backend. The
// backend delete runs even when memory did not hold the node.
func (s *DurableStore) DeleteNode(ctx context.Context, id string) error {
	if err := s.MemoryStore.DeleteNode(ctx, id); err != nil {
		return err
	}
	return s.write(ctx, "delete_node", id, func(ctx context.Context) error {
		return s.backend.DeleteNode(ctx, id)
	})
}

// Rehydrate replaces the memory graph with the backend contents.
func (s *DurableStore) Rehydrate(ctx context.Context) error {
	var nodes []types.Node
	var edges []types.Edge
	err := s.run(ctx, func(ctx context.Context) error {
		if err := s.backend.ScanNodes(ctx, func(n types.Node) error {
			nodes = append(nodes, n)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to scan nodes: %w", err)
		}
		if err := s.backend.ScanEdges(ctx, func(e types.Edge) error {
			edges = append(edges, e)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to scan edges: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rehydrate graph from %s: %w", s.backendName, err)
	}

	if err := s.checkOpen(); err != nil {
		return err
	}
	if skipped := s.MemoryStore.load(nodes, edges); skipped > 0 {
		s.logger.Warn("Skipped edges with missing endpoints during rehydrate", "skipped", skipped)
	}
	s.logger.Info("Rehydrated graph from durable backend", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// Verify compares node and edge counts between memory and the backend and
// returns an error wrapping storage.ErrInconsistent when they differ.
func (s *DurableStore) Verify(ctx context.Context) error {
	durableNodes, durableEdges, err := s.durableCounts(ctx)
	if err != nil {
		return err
	}
	memNodes, err := s.MemoryStore.NodeCount(ctx)
	if err != nil {
		return err
	}
	memEdges, err := s.MemoryStore.EdgeCount(ctx)
	if err != nil {
		return err
	}

	if int64(memNodes) != durableNodes || int64(memEdges) != durableEdges {
		return fmt.Errorf("%w: memory has %d nodes and %d edges, %s has %d nodes and %d edges",
			storage.ErrInconsistent, memNodes, memEdges, s.backendName, durableNodes, durableEdges)
	}
	return nil
}

func (s *DurableStore) durableCounts(ctx context.Context) (int64, int64, error) {
	var nodes, edges int64
	err := s.run(ctx, func(ctx context.Context) error {
		var err error
		if nodes, err = s.backend.CountNodes(ctx); err != nil {
			return fmt.Errorf("failed to count durable nodes: %w", err)
		}
		if edges, err = s.backend.CountEdges(ctx); err != nil {
			return fmt.Errorf("failed to count durable edges: %w", err)
		}
		return nil
	})
	return nodes, edges, err
}

// Stats reports memory and backend counts.
func (s *DurableStore) Stats(ctx context.Context) (*storage.GraphStats, error) {
	stats, err := s.MemoryStore.Stats(ctx)
	if err != nil {
		return nil, err
	}
	nodes, edges, err := s.durableCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats.Backend = s.backendName
	stats.DurableNodes = &nodes
	stats.DurableEdges = &edges
	return stats, nil
}

// Close closes the memory store, waits for in-flight backend calls and closes
// the backend.
func (s *DurableStore) Close() error {
	s.closeOnce.Do(func() {
		memErr := s.MemoryStore.Close()
		if err := s.pool.ReleaseTimeout(poolReleaseTimeout); err != nil {
			s.logger.Warn("Timed out waiting for durable graph workers", "error", err)
		}
		backendErr := s.backend.Close()
		if backendErr != nil {
			s.closeErr = fmt.Errorf("failed to close %s backend: %w", s.backendName, backendErr)
		} else {
			s.closeErr = memErr
		}
	})
	return s.closeErr
}
