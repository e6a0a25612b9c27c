package vector_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/storage/vector"
	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text onto three axes by keyword, so similarity in tests
// is predictable.
type keywordEmbedder struct {
	mu      sync.Mutex
	batches []int
	fail    error
}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, len(texts))
	e.mu.Unlock()
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := []float32{0, 0, 0}
		if strings.Contains(t, "cat") {
			v[0] = 1
		}
		if strings.Contains(t, "dog") {
			v[1] = 1
		}
		if strings.Contains(t, "fish") {
			v[2] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *keywordEmbedder) Dimensions() int { return 3 }
func (e *keywordEmbedder) Close() error    { return nil }

type storeFactory func(t *testing.T, dir string, opts vector.Options) storage.VectorStorage

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"nano": func(t *testing.T, dir string, opts vector.Options) storage.VectorStorage {
			s, err := vector.NewNanoStore(dir, "test", opts)
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T, dir string, opts vector.Options) storage.VectorStorage {
			s, err := vector.NewBadgerStore(dir, "test", false, opts)
			require.NoError(t, err)
			return s
		},
	}
}

func TestVectorStorage(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			t.Run("empty upsert returns empty result", func(t *testing.T) {
				emb := &keywordEmbedder{}
				s := newStore(t, t.TempDir(), vector.Options{Embedder: emb})
				defer s.Close()

				result, err := s.Upsert(ctx, map[string]types.VectorInput{})
				require.NoError(t, err)
				assert.NotNil(t, result)
				assert.Empty(t, result)
				assert.Empty(t, emb.batches)
			})

			t.Run("content is embedded in batches", func(t *testing.T) {
				emb := &keywordEmbedder{}
				s := newStore(t, t.TempDir(), vector.Options{Embedder: emb, BatchSize: 2})
				defer s.Close()

				result, err := s.Upsert(ctx, map[string]types.VectorInput{
					"a": {Content: "cat"},
					"b": {Content: "dog"},
					"c": {Content: "fish"},
					"d": {Embedding: []float32{1, 1, 0}},
				})
				require.NoError(t, err)
				require.Len(t, result, 4)
				assert.Equal(t, []int{2, 1}, emb.batches)
				assert.Equal(t, []float32{1, 0, 0}, result[0].Embedding)
			})

			t.Run("query ranks by cosine and applies threshold", func(t *testing.T) {
				s := newStore(t, t.TempDir(), vector.Options{Dimension: 2, CosineThreshold: 0.5})
				defer s.Close()

				_, err := s.Upsert(ctx, map[string]types.VectorInput{
					"same":     {Embedding: []float32{2, 0}, Payload: map[string]any{"entity_name": "A"}},
					"close":    {Embedding: []float32{1, 1}},
					"opposite": {Embedding: []float32{-1, 0}},
				})
				require.NoError(t, err)

				matches, err := s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 0}, TopK: 10})
				require.NoError(t, err)
				require.Len(t, matches, 2)
				assert.Equal(t, "same", matches[0].ID)
				assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
				assert.Equal(t, "A", matches[0].Payload["entity_name"])
				assert.Equal(t, "close", matches[1].ID)
				assert.InDelta(t, 0.7071, matches[1].Score, 1e-3)

				all, err := s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 0}, TopK: 10, ScoreThreshold: types.Threshold(-1)})
				require.NoError(t, err)
				require.Len(t, all, 3)
				assert.InDelta(t, -1.0, all[2].Score, 1e-6)

				top1, err := s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 0}, TopK: 1})
				require.NoError(t, err)
				require.Len(t, top1, 1)
				assert.Equal(t, "same", top1[0].ID)
			})

			t.Run("text query uses embedder", func(t *testing.T) {
				s := newStore(t, t.TempDir(), vector.Options{Embedder: &keywordEmbedder{}, CosineThreshold: 0.1})
				defer s.Close()

				_, err := s.Upsert(ctx, map[string]types.VectorInput{
					"cat": {Content: "a cat"},
					"dog": {Content: "a dog"},
				})
				require.NoError(t, err)

				matches, err := s.Query(ctx, types.VectorQuery{Text: "my cat", TopK: 5})
				require.NoError(t, err)
				require.Len(t, matches, 1)
				assert.Equal(t, "cat", matches[0].ID)
			})

			t.Run("dimension mismatch is a hard error", func(t *testing.T) {
				s := newStore(t, t.TempDir(), vector.Options{Dimension: 3})
				defer s.Close()

				_, err := s.Upsert(ctx, map[string]types.VectorInput{"x": {Embedding: []float32{1, 2}}})
				var dme *storage.DimensionMismatchError
				require.ErrorAs(t, err, &dme)
				assert.Equal(t, 3, dme.Expected)
				assert.Equal(t, 2, dme.Actual)

				_, err = s.Query(ctx, types.VectorQuery{Embedding: []float32{1}, TopK: 1})
				assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
			})

			t.Run("invalid top k", func(t *testing.T) {
				s := newStore(t, t.TempDir(), vector.Options{Dimension: 2})
				defer s.Close()
				_, err := s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 0}})
				assert.ErrorIs(t, err, types.ErrInvalidLimit)
			})

			t.Run("embedder failure propagates", func(t *testing.T) {
				boom := errors.New("rate limited")
				s := newStore(t, t.TempDir(), vector.Options{Embedder: &keywordEmbedder{fail: boom}})
				defer s.Close()
				_, err := s.Upsert(ctx, map[string]types.VectorInput{"x": {Content: "cat"}})
				assert.ErrorIs(t, err, boom)
			})

			t.Run("delete entity and relations", func(t *testing.T) {
				s := newStore(t, t.TempDir(), vector.Options{Dimension: 2})
				defer s.Close()

				alice, bob := vector.EntityID("Alice"), vector.EntityID("Bob")
				aliceBob, bobCarol := vector.RelationID("Alice", "Bob"), vector.RelationID("Bob", "Carol")
				_, err := s.Upsert(ctx, map[string]types.VectorInput{
					alice:    {Embedding: []float32{1, 0}},
					bob:      {Embedding: []float32{0, 1}},
					aliceBob: {Embedding: []float32{1, 1}, Payload: map[string]any{"src_id": "Alice", "tgt_id": "Bob"}},
					bobCarol: {Embedding: []float32{1, 1}, Payload: map[string]any{"src_id": "Bob", "tgt_id": "Carol"}},
				})
				require.NoError(t, err)

				require.NoError(t, s.DeleteEntity(ctx, "Alice"))
				require.NoError(t, s.DeleteEntity(ctx, "Nobody"))
				require.NoError(t, s.DeleteRelation(ctx, "Alice"))

				matches, err := s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 1}, TopK: 10, ScoreThreshold: types.Threshold(-1)})
				require.NoError(t, err)
				ids := make([]string, len(matches))
				for i, m := range matches {
					ids[i] = m.ID
				}
				assert.ElementsMatch(t, []string{bob, bobCarol}, ids)

				require.NoError(t, s.Delete(ctx, []string{bob, "unknown"}))
				matches, err = s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 1}, TopK: 10, ScoreThreshold: types.Threshold(-1)})
				require.NoError(t, err)
				assert.Len(t, matches, 1)
			})

			t.Run("persists across reopen", func(t *testing.T) {
				dir := t.TempDir()
				s := newStore(t, dir, vector.Options{Dimension: 2})
				_, err := s.Upsert(ctx, map[string]types.VectorInput{"v": {Embedding: []float32{0, 3}, Payload: map[string]any{"k": "v"}}})
				require.NoError(t, err)
				require.NoError(t, s.IndexDoneCallback(ctx))
				require.NoError(t, s.Close())

				reopened := newStore(t, dir, vector.Options{Dimension: 2})
				defer reopened.Close()
				matches, err := reopened.Query(ctx, types.VectorQuery{Embedding: []float32{0, 1}, TopK: 1})
				require.NoError(t, err)
				require.Len(t, matches, 1)
				assert.Equal(t, "v", matches[0].ID)
				assert.Equal(t, "v", matches[0].Payload["k"])
			})
		})
	}
}

func TestReopenWithDifferentDimension(t *testing.T) {
	ctx := context.Background()

	t.Run("nano", func(t *testing.T) {
		dir := t.TempDir()
		s, err := vector.NewNanoStore(dir, "test", vector.Options{Dimension: 2})
		require.NoError(t, err)
		require.NoError(t, s.IndexDoneCallback(ctx))
		require.NoError(t, s.Close())
		assert.FileExists(t, filepath.Join(dir, "vdb_test.json"))

		_, err = vector.NewNanoStore(dir, "test", vector.Options{Dimension: 4})
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("badger", func(t *testing.T) {
		dir := t.TempDir()
		s, err := vector.NewBadgerStore(dir, "test", false, vector.Options{Dimension: 2})
		require.NoError(t, err)
		require.NoError(t, s.Close())
		assert.DirExists(t, filepath.Join(dir, "badger_vdb_test"))

		_, err = vector.NewBadgerStore(dir, "test", false, vector.Options{Dimension: 4})
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})
}

func TestMetaFieldsRestrictPayload(t *testing.T) {
	ctx := context.Background()
	s, err := vector.NewNanoStore(t.TempDir(), "test", vector.Options{Dimension: 2, MetaFields: []string{"entity_name"}})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Upsert(ctx, map[string]types.VectorInput{
		"x": {Embedding: []float32{1, 0}, Payload: map[string]any{"entity_name": "A", "content": "dropped"}},
	})
	require.NoError(t, err)

	matches, err := s.Query(ctx, types.VectorQuery{Embedding: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, map[string]any{"entity_name": "A"}, matches[0].Payload)
}

func TestMissingDimensionIsInvalidConfig(t *testing.T) {
	_, err := vector.NewNanoStore(t.TempDir(), "test", vector.Options{})
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}
