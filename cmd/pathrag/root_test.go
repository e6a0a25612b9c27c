package pathrag

import (
	"bytes"
	"testing"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStats(t *testing.T) {
	nodes, edges := int64(2), int64(1)
	stats := &storage.GraphStats{
		Namespace:    "chunk_entity_relation",
		Backend:      "ladybug",
		NodeCount:    2,
		EdgeCount:    1,
		Components:   1,
		DurableNodes: &nodes,
		DurableEdges: &edges,
	}

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStats(&buf, stats, "yaml"))
		assert.Contains(t, buf.String(), "namespace: chunk_entity_relation")
		assert.Contains(t, buf.String(), "durable_nodes: 2")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStats(&buf, stats, "json"))
		assert.Contains(t, buf.String(), `"node_count": 2`)
		assert.Contains(t, buf.String(), `"backend": "ladybug"`)
	})

	t.Run("memory omits durable counts", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStats(&buf, &storage.GraphStats{Backend: "memory"}, "json"))
		assert.NotContains(t, buf.String(), "durable_nodes")
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, writeStats(&bytes.Buffer{}, stats, "xml"))
	})
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"stats", "delete-entity", "rehydrate", "verify"} {
		assert.True(t, names[want], want)
	}
}
