package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/soundprediction/pathrag/pkg/utils"
)

// nanoDocument is the on-disk layout of vdb_<namespace>.json.
type nanoDocument struct {
	EmbeddingDim int                 `json:"embedding_dim"`
	Data         []types.VectorEntry `json:"data"`
}

// NanoStore is an in-memory vector index persisted as one JSON document.
type NanoStore struct {
	namespace string
	path      string
	opts      Options
	logger    *slog.Logger

	mu      sync.RWMutex
	entries map[string]types.VectorEntry // embeddings stored normalized
	closed  bool
}

var _ storage.VectorStorage = (*NanoStore)(nil)

// NewNanoStore loads vdb_<namespace>.json if present. A stored document
// whose dimension differs from opts fails with ErrDimensionMismatch.
func NewNanoStore(workingDir, namespace string, opts Options) (*NanoStore, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	s := &NanoStore{
		namespace: namespace,
		path:      storage.NamespacePath(workingDir, storage.KindVectorJSON, namespace, ".json"),
		opts:      opts,
		logger:    opts.Logger.With("namespace", namespace, "store", "vector_nano"),
		entries:   make(map[string]types.VectorEntry),
	}

	var doc nanoDocument
	found, err := storage.ReadJSONFile(s.path, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector namespace %s: %w", namespace, err)
	}
	if found {
		if doc.EmbeddingDim != opts.Dimension {
			return nil, &storage.DimensionMismatchError{Namespace: namespace, Expected: opts.Dimension, Actual: doc.EmbeddingDim}
		}
		for _, e := range doc.Data {
			s.entries[e.ID] = e
		}
	}
	s.logger.Info("Loaded vector namespace", "vectors", len(s.entries), "dimension", opts.Dimension)
	return s, nil
}

// Upsert stores data and returns the entries as given, with computed
// embeddings filled in.
func (s *NanoStore) Upsert(ctx context.Context, data map[string]types.VectorInput) ([]types.VectorEntry, error) {
	if len(data) == 0 {
		s.logger.Warn("Upsert called with no vectors")
		return []types.VectorEntry{}, nil
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	entries, err := prepareEntries(ctx, s.namespace, &s.opts, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	for _, e := range entries {
		s.entries[e.ID] = types.VectorEntry{ID: e.ID, Embedding: utils.Normalize(e.Embedding), Payload: e.Payload}
	}
	s.logger.Debug("Upserted vectors", "count", len(entries))
	return entries, nil
}

func (s *NanoStore) Query(ctx context.Context, query types.VectorQuery) ([]types.VectorMatch, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	vec, topK, threshold, err := resolveQuery(ctx, s.namespace, &s.opts, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]utils.ScoredItem[types.VectorMatch], 0, len(s.entries))
	for _, e := range s.entries {
		// Stored and query vectors are unit length, so the dot product is the
		// cosine similarity.
		score := utils.DotProduct(vec, e.Embedding)
		if score < threshold {
			continue
		}
		candidates = append(candidates, utils.ScoredItem[types.VectorMatch]{
			Item:  types.VectorMatch{ID: e.ID, Payload: filterPayload(e.Payload, nil), Score: score},
			Score: score,
		})
	}
	s.mu.RUnlock()

	top := utils.TopKByScore(candidates, topK)
	matches := make([]types.VectorMatch, len(top))
	for i, item := range top {
		matches[i] = item.Item
	}
	return matches, nil
}

func (s *NanoStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *NanoStore) DeleteEntity(ctx context.Context, entityName string) error {
	id := EntityID(entityName)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if _, ok := s.entries[id]; !ok {
		s.logger.Info("Entity vector not found", "entity", entityName)
		return nil
	}
	delete(s.entries, id)
	s.logger.Info("Deleted entity vector", "entity", entityName)
	return nil
}

func (s *NanoStore) DeleteRelation(ctx context.Context, entityName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	removed := 0
	for id, e := range s.entries {
		if touchesEntity(e.Payload, entityName) {
			delete(s.entries, id)
			removed++
		}
	}
	s.logger.Info("Deleted relation vectors", "entity", entityName, "count", removed)
	return nil
}

// IndexDoneCallback writes the namespace document to disk.
func (s *NanoStore) IndexDoneCallback(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}

	doc := nanoDocument{EmbeddingDim: s.opts.Dimension, Data: make([]types.VectorEntry, 0, len(s.entries))}
	for _, e := range s.entries {
		doc.Data = append(doc.Data, e)
	}
	if err := storage.WriteJSONFile(s.path, doc); err != nil {
		return fmt.Errorf("failed to persist vector namespace %s: %w", s.namespace, err)
	}
	return nil
}

func (s *NanoStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored vectors.
func (s *NanoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *NanoStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}
