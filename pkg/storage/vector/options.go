package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/soundprediction/pathrag/pkg/embedder"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/soundprediction/pathrag/pkg/utils"
)

const (
	DefaultCosineThreshold = 0.2
	DefaultBatchSize       = 32

	// Payload fields identifying the endpoints of a relation vector.
	SourceIDField = "src_id"
	TargetIDField = "tgt_id"

	// Id prefixes for entity and relation vectors.
	EntityIDPrefix   = "ent-"
	RelationIDPrefix = "rel-"
)

// Options configures a vector store.
type Options struct {
	// Dimension of every vector in the namespace. When zero it is taken from
	// Embedder.
	Dimension int

	// CosineThreshold is the default minimum score for Query.
	CosineThreshold float64

	// BatchSize bounds the number of texts sent to Embedder per call.
	BatchSize int

	// Embedder computes vectors for entries and queries given as text. It may
	// be nil when callers always supply embeddings.
	Embedder embedder.Client

	// MetaFields, when non-empty, restricts stored payloads to these keys.
	MetaFields []string

	Logger *slog.Logger
}

func (o *Options) normalize() error {
	if o.Dimension <= 0 && o.Embedder != nil {
		o.Dimension = o.Embedder.Dimensions()
	}
	if o.Dimension <= 0 {
		return fmt.Errorf("%w: vector dimension must be positive", storage.ErrInvalidConfig)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// EntityID returns the vector id of an entity name.
func EntityID(entityName string) string {
	return utils.ComputeMDHashID(entityName, EntityIDPrefix)
}

// RelationID returns the vector id of the relation source -> target.
func RelationID(source, target string) string {
	return utils.ComputeMDHashID(source+target, RelationIDPrefix)
}

// prepareEntries turns upsert inputs into entries with checked embeddings.
// Inputs without an embedding are embedded from Content in batches. Entries
// come back sorted by id.
func prepareEntries(ctx context.Context, namespace string, opts *Options, data map[string]types.VectorInput) ([]types.VectorEntry, error) {
	ids := make([]string, 0, len(data))
	for id := range data {
		if id == "" {
			return nil, types.ErrEmptyID
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]types.VectorEntry, len(ids))
	var pending []int
	var contents []string
	for i, id := range ids {
		in := data[id]
		entries[i] = types.VectorEntry{ID: id, Embedding: in.Embedding, Payload: filterPayload(in.Payload, opts.MetaFields)}
		if len(in.Embedding) == 0 {
			pending = append(pending, i)
			contents = append(contents, in.Content)
		}
	}

	if len(pending) > 0 {
		if opts.Embedder == nil {
			return nil, fmt.Errorf("%w: namespace %s has no embedder for %d entries without embeddings", storage.ErrInvalidConfig, namespace, len(pending))
		}
		next := 0
		for _, batch := range embedder.Batches(contents, opts.BatchSize) {
			vectors, err := opts.Embedder.Embed(ctx, batch)
			if err != nil {
				return nil, fmt.Errorf("failed to embed %d entries for namespace %s: %w", len(batch), namespace, err)
			}
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
			}
			for _, v := range vectors {
				entries[pending[next]].Embedding = v
				next++
			}
		}
	}

	for _, e := range entries {
		if len(e.Embedding) != opts.Dimension {
			return nil, &storage.DimensionMismatchError{Namespace: namespace, ID: e.ID, Expected: opts.Dimension, Actual: len(e.Embedding)}
		}
	}
	return entries, nil
}

// resolveQuery returns the normalized query vector, result limit and score
// threshold for q.
func resolveQuery(ctx context.Context, namespace string, opts *Options, q types.VectorQuery) ([]float32, int, float64, error) {
	if q.TopK <= 0 {
		return nil, 0, 0, types.ErrInvalidLimit
	}

	vec := q.Embedding
	if len(vec) == 0 {
		if opts.Embedder == nil {
			return nil, 0, 0, fmt.Errorf("%w: namespace %s has no embedder for text queries", storage.ErrInvalidConfig, namespace)
		}
		var err error
		vec, err = opts.Embedder.EmbedSingle(ctx, q.Text)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to embed query for namespace %s: %w", namespace, err)
		}
	}
	if len(vec) != opts.Dimension {
		return nil, 0, 0, &storage.DimensionMismatchError{Namespace: namespace, Expected: opts.Dimension, Actual: len(vec)}
	}

	threshold := opts.CosineThreshold
	if q.ScoreThreshold != nil {
		threshold = *q.ScoreThreshold
	}
	return utils.Normalize(vec), q.TopK, threshold, nil
}

func filterPayload(payload map[string]any, fields []string) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	if len(fields) == 0 {
		for k, v := range payload {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		if v, ok := payload[f]; ok {
			out[f] = v
		}
	}
	return out
}

// touchesEntity reports whether a relation payload has entityName as either
// endpoint.
func touchesEntity(payload map[string]any, entityName string) bool {
	src, _ := payload[SourceIDField].(string)
	tgt, _ := payload[TargetIDField].(string)
	return src == entityName || tgt == entityName
}
