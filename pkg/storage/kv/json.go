package kv

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// JSONStore keeps a namespace in memory and persists it as a single JSON
// document at <working_dir>/kv_store_<namespace>.json.
type JSONStore struct {
	namespace string
	path      string
	logger    *slog.Logger

	mu     sync.RWMutex
	data   map[string]types.Record
	closed bool
}

var _ storage.KVStorage = (*JSONStore)(nil)

// NewJSONStore loads the namespace document if one exists.
func NewJSONStore(workingDir, namespace string, logger *slog.Logger) (*JSONStore, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &JSONStore{
		namespace: namespace,
		path:      storage.NamespacePath(workingDir, storage.KindKVJSON, namespace, ".json"),
		logger:    logger.With("namespace", namespace, "store", "kv_json"),
		data:      make(map[string]types.Record),
	}

	if _, err := storage.ReadJSONFile(s.path, &s.data); err != nil {
		return nil, fmt.Errorf("failed to load kv namespace %s: %w", namespace, err)
	}
	if s.data == nil {
		s.data = make(map[string]types.Record)
	}
	s.logger.Info("Loaded KV namespace", "records", len(s.data))
	return s, nil
}

func (s *JSONStore) Upsert(ctx context.Context, data map[string]types.Record) error {
	if len(data) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	for k, v := range data {
		s.data[k] = v.Clone()
	}
	return nil
}

func (s *JSONStore) GetByID(ctx context.Context, id string) (types.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	rec, ok := s.data[id]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (s *JSONStore) GetByIDs(ctx context.Context, ids []string) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	out := make([]types.Record, len(ids))
	for i, id := range ids {
		if rec, ok := s.data[id]; ok {
			out[i] = rec.Clone()
		}
	}
	return out, nil
}

func (s *JSONStore) FilterKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	missing := make(map[string]struct{})
	for _, k := range keys {
		if _, ok := s.data[k]; !ok {
			missing[k] = struct{}{}
		}
	}
	return missing, nil
}

func (s *JSONStore) AllKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *JSONStore) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.data = make(map[string]types.Record)
	return nil
}

// IndexDoneCallback writes the namespace document to disk.
func (s *JSONStore) IndexDoneCallback(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	if err := storage.WriteJSONFile(s.path, s.data); err != nil {
		return fmt.Errorf("failed to persist kv namespace %s: %w", s.namespace, err)
	}
	return nil
}

// Close releases the store. Unflushed writes are not persisted; call
// IndexDoneCallback first.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
