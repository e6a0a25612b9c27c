package storage_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespacePath(t *testing.T) {
	assert.Equal(t, filepath.Join("work", "kv_store_full_docs.json"),
		storage.NamespacePath("work", storage.KindKVJSON, "full_docs", ".json"))
	assert.Equal(t, filepath.Join("work", "ladybug_chunk_entity_relation"),
		storage.NamespacePath("work", storage.KindGraphDurable, "chunk_entity_relation", ""))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, storage.EnsureDir(dir))
	require.NoError(t, storage.EnsureDir(dir))
	assert.DirExists(t, dir)
}

func TestDurableWriteError(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("upsert: %w", &storage.DurableWriteError{Op: "upsert_node", Key: "A", Err: cause})

	assert.True(t, storage.IsDurableWriteError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `durable upsert_node "A" failed: disk full`)
	assert.False(t, storage.IsDurableWriteError(cause))
}

func TestDimensionMismatchError(t *testing.T) {
	err := error(&storage.DimensionMismatchError{Namespace: "entities", ID: "x", Expected: 4, Actual: 3})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	var dme *storage.DimensionMismatchError
	require.ErrorAs(t, err, &dme)
	assert.Equal(t, 4, dme.Expected)
	assert.Contains(t, err.Error(), "dimension 3, expected 4")

	queryErr := &storage.DimensionMismatchError{Namespace: "entities", Expected: 4, Actual: 2}
	assert.Contains(t, queryErr.Error(), "query embedding")
}

func TestValidateNamespace(t *testing.T) {
	for _, ns := range []string{"full_docs", "chunk_entity_relation", "entities"} {
		assert.NoError(t, storage.ValidateNamespace(ns), ns)
	}
	for _, ns := range []string{"", "../etc", "a/b", `a\b`, "nul\x00"} {
		assert.ErrorIs(t, storage.ValidateNamespace(ns), storage.ErrInvalidNamespace, ns)
	}
}

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	var missing map[string]int
	ok, err := storage.ReadJSONFile(path, &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.WriteJSONFile(path, map[string]int{"a": 1}))
	assert.NoFileExists(t, path+".tmp")

	var got map[string]int
	ok, err = storage.ReadJSONFile(path, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, got)
}
