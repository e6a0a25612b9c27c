package kv

import (
	"fmt"
	"log/slog"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
)

// Open builds the KV store named by cfg.Storage.KV for namespace.
func Open(cfg *config.Config, namespace string, logger *slog.Logger) (storage.KVStorage, error) {
	var (
		s   storage.KVStorage
		err error
	)
	switch cfg.Storage.KV {
	case "json":
		s, err = NewJSONStore(cfg.WorkingDir, namespace, logger)
	case "badger":
		s, err = NewBadgerStore(cfg.WorkingDir, namespace, false, logger)
	default:
		return nil, fmt.Errorf("%w: kv %q (supported: %v)", storage.ErrUnsupportedBackend, cfg.Storage.KV, config.KVBackends)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
