package telemetry_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/pathrag/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetHandlerRecordsErrors(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	h, err := telemetry.NewParquetHandler(slog.NewTextHandler(&console, nil), dir)
	require.NoError(t, err)

	log := slog.New(h).With("namespace", "chunk_entity_relation")
	ctx := telemetry.WithOperation(context.Background(), "upsert_node")

	log.InfoContext(ctx, "Upserted node")
	log.ErrorContext(ctx, "Durable graph write failed", "error", errors.New("backend down"))

	assert.Contains(t, console.String(), "Upserted node", "every record reaches the next handler")
	assert.Empty(t, h.Files(), "records are buffered until flush")

	require.NoError(t, h.Close())
	files := h.Files()
	require.Len(t, files, 1)

	rows, err := parquet.ReadFile[telemetry.LogRecord](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Durable graph write failed", rows[0].Message)
	assert.Equal(t, "ERROR", rows[0].Level)
	assert.Equal(t, "chunk_entity_relation", rows[0].Namespace)
	assert.Equal(t, "upsert_node", rows[0].Operation)
	assert.Contains(t, rows[0].Attributes, "backend down")
	assert.NotEmpty(t, rows[0].ID)
}

func TestParquetHandlerFlushesFullBatches(t *testing.T) {
	dir := t.TempDir()
	h, err := telemetry.NewParquetHandlerWithBatch(slog.NewTextHandler(&bytes.Buffer{}, nil), dir, 2)
	require.NoError(t, err)

	log := slog.New(h)
	log.Error("one")
	log.WithGroup("child").Error("two")
	log.Error("three")

	assert.Len(t, h.Files(), 1, "clones share the batch buffer")
	require.NoError(t, h.Flush())
	assert.Len(t, h.Files(), 2)
	require.NoError(t, h.Flush())
	assert.Len(t, h.Files(), 2, "empty flush writes nothing")
}
