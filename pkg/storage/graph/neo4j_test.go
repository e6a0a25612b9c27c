package graph_test

import (
	"context"
	"os"
	"testing"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/storage/graph"
	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neo4jConfig(t *testing.T) config.Neo4jConfig {
	t.Helper()
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set, skipping neo4j tests")
	}
	return config.Neo4jConfig{
		URI:      uri,
		Username: os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	}
}

func TestNeo4jBackend(t *testing.T) {
	cfg := neo4jConfig(t)
	ctx := context.Background()

	backend, err := graph.NewNeo4jBackend(ctx, cfg, "pathrag_test", nil)
	require.NoError(t, err)
	defer backend.Close()
	require.NoError(t, backend.Clear(ctx))
	defer backend.Clear(ctx)

	require.NoError(t, backend.EnsureSchema(ctx))
	require.NoError(t, backend.EnsureSchema(ctx))

	require.NoError(t, backend.UpsertNode(ctx, types.Node{ID: "A"}))
	require.NoError(t, backend.UpsertNode(ctx, types.Node{ID: "B"}))
	require.NoError(t, backend.UpsertEdge(ctx, types.Edge{Source: "A", Target: "B", Weight: 2}))
	assert.ErrorIs(t, backend.UpsertEdge(ctx, types.Edge{Source: "A", Target: "ghost"}), storage.ErrMissingEndpoint)

	nodes, err := backend.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nodes)

	var scanned []types.Edge
	require.NoError(t, backend.ScanEdges(ctx, func(e types.Edge) error {
		scanned = append(scanned, e)
		return nil
	}))
	require.Len(t, scanned, 1)
	assert.Equal(t, 2.0, scanned[0].Weight)

	require.NoError(t, backend.DeleteNode(ctx, "A"))
	edges, err := backend.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), edges)
}
