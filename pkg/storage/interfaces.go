package storage

import (
	"context"

	"github.com/soundprediction/pathrag/pkg/types"
)

// KVStorage stores JSON-like records by string key within one namespace.
type KVStorage interface {
	// Upsert inserts or replaces every record in data. An empty map is a no-op.
	Upsert(ctx context.Context, data map[string]types.Record) error

	// GetByID returns the record stored under id. The boolean is false and the
	// error nil when the key is absent.
	GetByID(ctx context.Context, id string) (types.Record, bool, error)

	// GetByIDs returns one entry per id, in order, with nil for absent keys.
	GetByIDs(ctx context.Context, ids []string) ([]types.Record, error)

	// FilterKeys returns the subset of keys that are NOT present.
	FilterKeys(ctx context.Context, keys []string) (map[string]struct{}, error)

	AllKeys(ctx context.Context) ([]string, error)

	// Drop removes every record in the namespace.
	Drop(ctx context.Context) error

	// IndexDoneCallback makes all accepted writes durable.
	IndexDoneCallback(ctx context.Context) error

	Close() error
}

// VectorStorage stores embeddings with payloads and answers similarity
// queries within one namespace.
type VectorStorage interface {
	// Upsert stores every entry in data, computing embeddings from Content for
	// entries that carry none. An empty map returns an empty result.
	Upsert(ctx context.Context, data map[string]types.VectorInput) ([]types.VectorEntry, error)

	// Query returns matches with score >= the threshold, ordered by score
	// descending and truncated to TopK.
	Query(ctx context.Context, query types.VectorQuery) ([]types.VectorMatch, error)

	Delete(ctx context.Context, ids []string) error

	// DeleteEntity removes the entity vector keyed by the hash of entityName.
	DeleteEntity(ctx context.Context, entityName string) error

	// DeleteRelation removes every relation vector whose src_id or tgt_id
	// payload equals entityName.
	DeleteRelation(ctx context.Context, entityName string) error

	IndexDoneCallback(ctx context.Context) error
	Close() error
}

// GraphStorage is a directed property graph of entities and relations with
// at most one edge per ordered (source, target) pair.
type GraphStorage interface {
	HasNode(ctx context.Context, id string) (bool, error)
	HasEdge(ctx context.Context, source, target string) (bool, error)
	GetNode(ctx context.Context, id string) (*types.Node, bool, error)
	GetEdge(ctx context.Context, source, target string) (*types.Edge, bool, error)

	// NodeDegree counts edges incident to id in either direction.
	NodeDegree(ctx context.Context, id string) (int, error)

	// EdgeDegree is the sum of the degrees of both endpoints.
	EdgeDegree(ctx context.Context, source, target string) (int, error)

	// GetNodeEdges returns the (source, target) pairs of every edge incident
	// to id, outgoing first. The boolean is false when the node does not exist.
	GetNodeEdges(ctx context.Context, id string) ([]types.EdgePair, bool, error)

	// Neighbors returns the sorted ids adjacent to id in either direction.
	Neighbors(ctx context.Context, id string) ([]string, error)

	// UpsertNode creates the node or replaces all of its attributes.
	UpsertNode(ctx context.Context, node types.Node) error

	// UpsertEdge creates or overwrites the single edge from Source to Target.
	// Both endpoints must already exist.
	UpsertEdge(ctx context.Context, edge types.Edge) error

	// DeleteNode removes a node and all incident edges. Deleting an absent
	// node logs a warning and returns nil.
	DeleteNode(ctx context.Context, id string) error

	NodeCount(ctx context.Context) (int, error)
	EdgeCount(ctx context.Context) (int, error)
	Nodes(ctx context.Context) ([]types.Node, error)
	Edges(ctx context.Context) ([]types.Edge, error)

	// ConnectedComponents groups node ids by weak connectivity.
	ConnectedComponents(ctx context.Context) ([][]string, error)

	// Clusters groups node ids into communities by label propagation.
	Clusters(ctx context.Context) ([][]string, error)

	IndexDoneCallback(ctx context.Context) error
	Close() error
}

// DurableBackend is the persistent half of the dual-backend graph store. It
// speaks in terms of whole nodes and edges.
type DurableBackend interface {
	// EnsureSchema creates the entity and relation tables. Calling it against
	// an initialized database is a no-op.
	EnsureSchema(ctx context.Context) error

	UpsertNode(ctx context.Context, node types.Node) error

	// UpsertEdge fails with an error wrapping ErrMissingEndpoint when either
	// endpoint is absent from the backend. Nothing is written in that case.
	UpsertEdge(ctx context.Context, edge types.Edge) error

	// DeleteNode removes the node and its incident relations. Deleting an
	// absent node is not an error.
	DeleteNode(ctx context.Context, id string) error

	ScanNodes(ctx context.Context, fn func(types.Node) error) error
	ScanEdges(ctx context.Context, fn func(types.Edge) error) error

	CountNodes(ctx context.Context) (int64, error)
	CountEdges(ctx context.Context) (int64, error)

	Close() error
}

// GraphStats summarizes a graph store.
type GraphStats struct {
	Namespace    string `json:"namespace" yaml:"namespace"`
	Backend      string `json:"backend" yaml:"backend"`
	NodeCount    int    `json:"node_count" yaml:"node_count"`
	EdgeCount    int    `json:"edge_count" yaml:"edge_count"`
	Components   int    `json:"components" yaml:"components"`
	DurableNodes *int64 `json:"durable_nodes,omitempty" yaml:"durable_nodes,omitempty"`
	DurableEdges *int64 `json:"durable_edges,omitempty" yaml:"durable_edges,omitempty"`
}
