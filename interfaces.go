package pathrag

import (
	"context"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// Consumers should depend on the smallest interface that meets their needs.

// Retriever is the retrieval collaborator: it ranks paths through the graph
// and assembles the answer context. It runs only after the query mode has
// been validated.
type Retriever interface {
	Retrieve(ctx context.Context, query string, param types.QueryParam, stores *Stores) (string, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, param types.QueryParam, stores *Stores) (string, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, query string, param types.QueryParam, stores *Stores) (string, error) {
	return f(ctx, query, param, stores)
}

// Querier answers questions over the stored knowledge.
type Querier interface {
	Query(ctx context.Context, query string, param types.QueryParam) (string, error)
}

// EntityManager writes and removes entities and relations across the graph
// and the vector namespaces that index them.
type EntityManager interface {
	// UpsertEntity writes the node and its entity vector.
	UpsertEntity(ctx context.Context, node types.Node) error

	// UpsertRelation writes the edge and its relation vector.
	UpsertRelation(ctx context.Context, edge types.Edge) error

	// DeleteByEntity removes the entity vector, every relation vector that
	// touches the entity, and the graph node with its edges.
	DeleteByEntity(ctx context.Context, entityName string) error
}

// StoreMaintainer covers persistence and consistency upkeep.
type StoreMaintainer interface {
	// IndexDone makes every accepted write durable.
	IndexDone(ctx context.Context) error

	// Stats summarizes the graph namespace.
	Stats(ctx context.Context) (*storage.GraphStats, error)

	// Rehydrate rebuilds the in-memory graph from its durable backend.
	Rehydrate(ctx context.Context) error

	// Verify checks that the in-memory graph and its durable backend agree.
	Verify(ctx context.Context) error

	Close() error
}
