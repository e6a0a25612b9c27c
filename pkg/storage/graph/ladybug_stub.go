//go:build !cgo

package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// ErrCGORequired is returned when Ladybug operations are called without CGO support
var ErrCGORequired = errors.New("ladybug backend requires CGO; build with CGO_ENABLED=1")

// LadybugBackend is a stub implementation when CGO is disabled.
// All methods return ErrCGORequired.
type LadybugBackend struct{}

var _ storage.DurableBackend = (*LadybugBackend)(nil)

// NewLadybugBackend returns an error when CGO is disabled
func NewLadybugBackend(dir string, cfg config.LadybugConfig, logger *slog.Logger) (*LadybugBackend, error) {
	return nil, ErrCGORequired
}

func (b *LadybugBackend) EnsureSchema(ctx context.Context) error { return ErrCGORequired }

func (b *LadybugBackend) UpsertNode(ctx context.Context, node types.Node) error {
	return ErrCGORequired
}

func (b *LadybugBackend) UpsertEdge(ctx context.Context, edge types.Edge) error {
	return ErrCGORequired
}

func (b *LadybugBackend) DeleteNode(ctx context.Context, id string) error { return ErrCGORequired }

func (b *LadybugBackend) ScanNodes(ctx context.Context, fn func(types.Node) error) error {
	return ErrCGORequired
}

func (b *LadybugBackend) ScanEdges(ctx context.Context, fn func(types.Edge) error) error {
	return ErrCGORequired
}

func (b *LadybugBackend) CountNodes(ctx context.Context) (int64, error) { return 0, ErrCGORequired }
func (b *LadybugBackend) CountEdges(ctx context.Context) (int64, error) { return 0, ErrCGORequired }

// Close returns nil
func (b *LadybugBackend) Close() error { return nil }
