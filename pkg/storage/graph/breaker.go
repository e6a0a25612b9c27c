package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// CircuitBreakerBackend wraps a DurableBackend with circuit breaking logic.
// While the breaker is open every call fails fast with
// gobreaker.ErrOpenState.
type CircuitBreakerBackend struct {
	backend storage.DurableBackend
	cb      *gobreaker.CircuitBreaker
}

var _ storage.DurableBackend = (*CircuitBreakerBackend)(nil)

// NewCircuitBreakerBackend creates a new circuit breaker backend
func NewCircuitBreakerBackend(backend storage.DurableBackend, cfg config.CircuitBreakerConfig, name string, logger *slog.Logger) *CircuitBreakerBackend {
	if logger == nil {
		logger = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Error("Durable graph circuit breaker tripped", "breaker", name, "from", from.String(), "to", to.String())
				return
			}
			logger.Info("Durable graph circuit breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &CircuitBreakerBackend{
		backend: backend,
		cb:      gobreaker.NewCircuitBreaker(st),
	}
}

// State returns the current breaker state.
func (c *CircuitBreakerBackend) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreakerBackend) exec(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (c *CircuitBreakerBackend) EnsureSchema(ctx context.Context) error {
	return c.exec(func() error { return c.backend.EnsureSchema(ctx) })
}

func (c *CircuitBreakerBackend) UpsertNode(ctx context.Context, node types.Node) error {
	return c.exec(func() error { return c.backend.UpsertNode(ctx, node) })
}

func (c *CircuitBreakerBackend) UpsertEdge(ctx context.Context, edge types.Edge) error {
	return c.exec(func() error { return c.backend.UpsertEdge(ctx, edge) })
}

func (c *CircuitBreakerBackend) DeleteNode(ctx context.Context, id string) error {
	return c.exec(func() error { return c.backend.DeleteNode(ctx, id) })
}

func (c *CircuitBreakerBackend) ScanNodes(ctx context.Context, fn func(types.Node) error) error {
	return c.exec(func() error { return c.backend.ScanNodes(ctx, fn) })
}

func (c *CircuitBreakerBackend) ScanEdges(ctx context.Context, fn func(types.Edge) error) error {
	return c.exec(func() error { return c.backend.ScanEdges(ctx, fn) })
}

func (c *CircuitBreakerBackend) CountNodes(ctx context.Context) (int64, error) {
	n, err := c.cb.Execute(func() (interface{}, error) {
		return c.backend.CountNodes(ctx)
	})
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

func (c *CircuitBreakerBackend) CountEdges(ctx context.Context) (int64, error) {
	n, err := c.cb.Execute(func() (interface{}, error) {
		return c.backend.CountEdges(ctx)
	})
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

// Close closes the wrapped backend without going through the breaker.
func (c *CircuitBreakerBackend) Close() error {
	return c.backend.Close()
}
