package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/storage/badgerdb"
	"github.com/soundprediction/pathrag/pkg/types"
)

const recordPrefix = "kv:"

// BadgerStore persists every record as a JSON value under "kv:<id>" in a
// badger database at <working_dir>/badger_kv_<namespace>.
type BadgerStore struct {
	namespace string
	backend   *badgerdb.Backend
	logger    *slog.Logger

	closeOnce sync.Once
}

var _ storage.KVStorage = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the namespace database. With inMemory set
// nothing is written to disk, which is what tests use.
func NewBadgerStore(workingDir, namespace string, inMemory bool, logger *slog.Logger) (*BadgerStore, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("namespace", namespace, "store", "kv_badger")

	dir := ""
	if !inMemory {
		dir = storage.NamespacePath(workingDir, storage.KindKVBadger, namespace, "")
	}
	backend, err := badgerdb.Open(dir, inMemory, logger)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{namespace: namespace, backend: backend, logger: logger}, nil
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func (s *BadgerStore) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrClosed
	}
	return nil
}

func (s *BadgerStore) Upsert(ctx context.Context, data map[string]types.Record) error {
	if len(data) == 0 {
		return nil
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	entries := make(map[string][]byte, len(data))
	for id, rec := range data {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", id, err)
		}
		entries[recordPrefix+id] = raw
	}
	return s.backend.SetMany(entries)
}

func (s *BadgerStore) GetByID(ctx context.Context, id string) (types.Record, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	raw, ok, err := s.backend.Get(recordKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var rec types.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return rec, true, nil
}

func (s *BadgerStore) GetByIDs(ctx context.Context, ids []string) ([]types.Record, error) {
	out := make([]types.Record, len(ids))
	for i, id := range ids {
		rec, ok, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = rec
		}
	}
	return out, nil
}

func (s *BadgerStore) FilterKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	missing := make(map[string]struct{})
	for _, k := range keys {
		_, ok, err := s.backend.Get(recordKey(k))
		if err != nil {
			return nil, err
		}
		if !ok {
			missing[k] = struct{}{}
		}
	}
	return missing, nil
}

// AllKeys returns every key in badger key order, which is lexicographic.
func (s *BadgerStore) AllKeys(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.backend.Scan([]byte(recordPrefix), false, func(key, _ []byte) error {
		keys = append(keys, string(key[len(recordPrefix):]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *BadgerStore) Drop(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.DropPrefix([]byte(recordPrefix))
}

// IndexDoneCallback syncs the value log; writes are already durable in the
// LSM once Upsert returns.
func (s *BadgerStore) IndexDoneCallback(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.Sync()
}

func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.backend.Close()
	})
	return err
}
