package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/storage/badgerdb"
	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/soundprediction/pathrag/pkg/utils"
)

const (
	vectorPrefix = "vec:"
	dimKey       = "meta:embedding_dim"
)

// BadgerStore persists normalized vectors under "vec:<id>" in a badger
// database and answers queries by scanning every vector.
type BadgerStore struct {
	namespace string
	opts      Options
	backend   *badgerdb.Backend
	logger    *slog.Logger
}

var _ storage.VectorStorage = (*BadgerStore)(nil)

// NewBadgerStore opens the namespace database. The dimension is recorded on
// first open; reopening with a different dimension fails with
// ErrDimensionMismatch.
func NewBadgerStore(workingDir, namespace string, inMemory bool, opts Options) (*BadgerStore, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	logger := opts.Logger.With("namespace", namespace, "store", "vector_badger")

	dir := ""
	if !inMemory {
		dir = storage.NamespacePath(workingDir, storage.KindVectorBadger, namespace, "")
	}
	backend, err := badgerdb.Open(dir, inMemory, logger)
	if err != nil {
		return nil, err
	}

	s := &BadgerStore{namespace: namespace, opts: opts, backend: backend, logger: logger}
	if err := s.checkDimension(); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

func (s *BadgerStore) checkDimension() error {
	raw, ok, err := s.backend.Get([]byte(dimKey))
	if err != nil {
		return err
	}
	if !ok {
		return s.backend.SetMany(map[string][]byte{dimKey: []byte(fmt.Sprint(s.opts.Dimension))})
	}
	var stored int
	if _, err := fmt.Sscan(string(raw), &stored); err != nil {
		return fmt.Errorf("corrupt dimension record in namespace %s: %w", s.namespace, err)
	}
	if stored != s.opts.Dimension {
		return &storage.DimensionMismatchError{Namespace: s.namespace, Expected: s.opts.Dimension, Actual: stored}
	}
	return nil
}

func (s *BadgerStore) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrClosed
	}
	return nil
}

func (s *BadgerStore) Upsert(ctx context.Context, data map[string]types.VectorInput) ([]types.VectorEntry, error) {
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

	values := make(map[string][]byte, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(types.VectorEntry{ID: e.ID, Embedding: utils.Normalize(e.Embedding), Payload: e.Payload})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal vector %s: %w", e.ID, err)
		}
		values[vectorPrefix+e.ID] = raw
	}
	if err := s.backend.SetMany(values); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BadgerStore) Query(ctx context.Context, query types.VectorQuery) ([]types.VectorMatch, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	vec, topK, threshold, err := resolveQuery(ctx, s.namespace, &s.opts, query)
	if err != nil {
		return nil, err
	}

	var results []types.VectorMatch
	err = s.scan(func(e types.VectorEntry) error {
		score := utils.DotProduct(vec, e.Embedding)
		if score >= threshold {
			results = append(results, types.VectorMatch{ID: e.ID, Payload: e.Payload, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, ties by id for a stable order
	slices.SortFunc(results, func(a, b types.VectorMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []types.VectorMatch{}
	}
	return results, nil
}

func (s *BadgerStore) scan(fn func(types.VectorEntry) error) error {
	return s.backend.Scan([]byte(vectorPrefix), true, func(_, value []byte) error {
		var e types.VectorEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("failed to unmarshal vector: %w", err)
		}
		return fn(e)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, ids []string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = vectorPrefix + id
	}
	return s.backend.DeleteMany(keys)
}

func (s *BadgerStore) DeleteEntity(ctx context.Context, entityName string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.backend.DeleteMany([]string{vectorPrefix + EntityID(entityName)}); err != nil {
		return fmt.Errorf("failed to delete entity vector %s: %w", entityName, err)
	}
	s.logger.Info("Deleted entity vector", "entity", entityName)
	return nil
}

func (s *BadgerStore) DeleteRelation(ctx context.Context, entityName string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	var keys []string
	err := s.scan(func(e types.VectorEntry) error {
		if touchesEntity(e.Payload, entityName) {
			keys = append(keys, vectorPrefix+e.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.backend.DeleteMany(keys); err != nil {
		return fmt.Errorf("failed to delete relation vectors for %s: %w", entityName, err)
	}
	s.logger.Info("Deleted relation vectors", "entity", entityName, "count", len(keys))
	return nil
}

func (s *BadgerStore) IndexDoneCallback(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.Sync()
}

func (s *BadgerStore) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}
