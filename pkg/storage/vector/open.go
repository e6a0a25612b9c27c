package vector

import (
	"fmt"
	"log/slog"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/embedder"
	"github.com/soundprediction/pathrag/pkg/storage"
)

// Open builds the vector store named by cfg.Storage.Vector for namespace.
// Dimension, threshold and batch size come from cfg.Vector.
func Open(cfg *config.Config, namespace string, emb embedder.Client, metaFields []string, logger *slog.Logger) (storage.VectorStorage, error) {
	opts := Options{
		Dimension:       cfg.Vector.EmbeddingDim,
		CosineThreshold: cfg.Vector.CosineThreshold,
		BatchSize:       cfg.Vector.EmbeddingBatchNum,
		Embedder:        emb,
		MetaFields:      metaFields,
		Logger:          logger,
	}

	var (
		s   storage.VectorStorage
		err error
	)
	switch cfg.Storage.Vector {
	case "nano":
		s, err = NewNanoStore(cfg.WorkingDir, namespace, opts)
	case "badger":
		s, err = NewBadgerStore(cfg.WorkingDir, namespace, false, opts)
	default:
		return nil, fmt.Errorf("%w: vector %q (supported: %v)", storage.ErrUnsupportedBackend, cfg.Storage.Vector, config.VectorBackends)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
