package pathrag

import (
	"context"
	"fmt"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Query validates param and hands the query to the Retriever. An unknown
// mode fails with types.ErrInvalidQueryMode before any store is touched.
// Zero fields of param, including an empty mode, take their defaults.
func (c *Client) Query(ctx context.Context, query string, param types.QueryParam) (string, error) {
	param = QueryParamWithDefaults(param)
	if err := param.Validate(); err != nil {
		return "", err
	}
	if c.retriever == nil {
		return "", ErrNoRetriever
	}

	c.logger.Debug("Dispatching query", "mode", param.Mode, "top_k", param.TopK)
	return c.retriever.Retrieve(ctx, query, param, c.stores)
}

// IndexDone runs IndexDoneCallback on every store concurrently and returns
// the first error.
func (c *Client) IndexDone(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, st := range c.stores.all() {
		g.Go(func() error {
			return st.IndexDoneCallback(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to persist stores: %w", err)
	}
	return nil
}

type statser interface {
	Stats(ctx context.Context) (*storage.GraphStats, error)
}

type durableGraph interface {
	Rehydrate(ctx context.Context) error
	Verify(ctx context.Context) error
}

// Stats summarizes the graph namespace.
func (c *Client) Stats(ctx context.Context) (*storage.GraphStats, error) {
	s, ok := c.stores.Graph.(statser)
	if !ok {
		return nil, fmt.Errorf("graph store %T does not report stats", c.stores.Graph)
	}
	return s.Stats(ctx)
}

// Rehydrate rebuilds the in-memory graph from the durable backend.
func (c *Client) Rehydrate(ctx context.Context) error {
	d, ok := c.stores.Graph.(durableGraph)
	if !ok {
		return ErrNotDurable
	}
	return d.Rehydrate(ctx)
}

// Verify compares the in-memory graph with the durable backend.
func (c *Client) Verify(ctx context.Context) error {
	d, ok := c.stores.Graph.(durableGraph)
	if !ok {
		return ErrNotDurable
	}
	return d.Verify(ctx)
}
