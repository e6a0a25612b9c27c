//go:build cgo

package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ladybug "github.com/LadybugDB/go-ladybug"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// ladybugSchemaQueries create the entity and relation tables. They are run
// without IF NOT EXISTS; an "already exists" failure is reported as
// storage.ErrSchemaExists and skipped.
var ladybugSchemaQueries = []string{
	"CREATE NODE TABLE Entity(id STRING, entity_type STRING, description STRING, source_id STRING, PRIMARY KEY(id))",
	"CREATE REL TABLE Relation(FROM Entity TO Entity, weight DOUBLE, description STRING, keywords STRING, source_id STRING)",
}

const (
	ladybugUpsertNodeQuery = "MERGE (n:Entity {id: $id}) SET n.entity_type = $t, n.description = $d, n.source_id = $s"
	ladybugUpsertEdgeQuery = "MATCH (a:Entity {id: $src}), (b:Entity {id: $tgt}) " +
		"MERGE (a)-[r:Relation]->(b) " +
		"SET r.weight = $w, r.description = $d, r.keywords = $k, r.source_id = $s " +
		"RETURN COUNT(r)"
	ladybugDeleteNodeQuery = "MATCH (n:Entity {id: $id}) DETACH DELETE n"
	ladybugScanNodesQuery  = "MATCH (e:Entity) RETURN e.id, e.entity_type, e.description, e.source_id"
	ladybugScanEdgesQuery  = "MATCH (a:Entity)-[r:Relation]->(b:Entity) RETURN a.id, b.id, r.weight, r.description, r.keywords, r.source_id"
	ladybugCountNodesQuery = "MATCH (e:Entity) RETURN COUNT(*)"
	ladybugCountEdgesQuery = "MATCH (:Entity)-[r:Relation]->(:Entity) RETURN COUNT(*)"

	// ladybugDBFile is the database file inside the namespace directory.
	ladybugDBFile = "graph.lbdb"
)

// LadybugBackend stores the graph in an embedded Ladybug database.
type LadybugBackend struct {
	dbPath string
	db     *ladybug.Database
	conn   *ladybug.Connection
	logger *slog.Logger

	// The ladybug C++ library is not thread-safe; every call on conn holds mu.
	mu     sync.Mutex
	stmts  map[string]*ladybug.PreparedStatement
	closed bool
}

var _ storage.DurableBackend = (*LadybugBackend)(nil)

// NewLadybugBackend opens (or creates) the database in dir, creating dir if
// needed. If opening fails and a write-ahead log is present, the log is moved
// aside and the open is retried once.
func NewLadybugBackend(dir string, cfg config.LadybugConfig, logger *slog.Logger) (*LadybugBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := storage.EnsureDir(dir); err != nil {
		return nil, err
	}
	if cfg.BufferPoolSize == 0 {
		cfg.BufferPoolSize = 1024 * 1024 * 1024 // 1GB
	}
	if cfg.MaxNumThreads == 0 {
		cfg.MaxNumThreads = 1
	}
	if cfg.MaxDBSize == 0 {
		cfg.MaxDBSize = 1 << 43 // 8TB
	}

	// Build the SystemConfig by hand to avoid version mismatch issues with
	// DefaultSystemConfig()
	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    cfg.BufferPoolSize,
		MaxNumThreads:     cfg.MaxNumThreads,
		EnableCompression: cfg.EnableCompression,
		ReadOnly:          false,
		MaxDbSize:         cfg.MaxDBSize,
	}

	dbPath := filepath.Join(dir, ladybugDBFile)
	db, err := ladybug.OpenDatabase(dbPath, systemConfig)
	if err != nil {
		walPath := dbPath + ".wal"
		if _, statErr := os.Stat(walPath); statErr != nil {
			return nil, fmt.Errorf("failed to open ladybug database at %s: %w", dbPath, err)
		}

		backupPath := fmt.Sprintf("%s.%d.corrupt", walPath, time.Now().UnixNano())
		logger.Warn("Failed to open ladybug database, moving WAL aside", "path", dbPath, "wal_backup", backupPath, "error", err)
		if moveErr := os.Rename(walPath, backupPath); moveErr != nil {
			return nil, fmt.Errorf("failed to open ladybug database and failed to move WAL: %v (orig err: %w)", moveErr, err)
		}
		db, err = ladybug.OpenDatabase(dbPath, systemConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open ladybug database after WAL recovery attempt: %w", err)
		}
		logger.Info("Recovered ladybug database by moving corrupt WAL", "path", dbPath)
	}

	conn, err := ladybug.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	return &LadybugBackend{
		dbPath: dbPath,
		db:     db,
		conn:   conn,
		stmts:  make(map[string]*ladybug.PreparedStatement),
		logger: logger.With("backend", "ladybug"),
	}, nil
}

// query runs cypher with params and calls fn with each row. A nil fn
// discards the rows.
func (b *LadybugBackend) query(ctx context.Context, cypher string, params map[string]any, fn func(row []any) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrClosed
	}

	var res *ladybug.QueryResult
	var err error
	if len(params) > 0 {
		stmt, prepErr := b.prepare(cypher)
		if prepErr != nil {
			return fmt.Errorf("failed to prepare ladybug query: %w", prepErr)
		}
		res, err = b.conn.Execute(stmt, params)
	} else {
		res, err = b.conn.Query(cypher)
	}
	if err != nil {
		return err
	}
	defer res.Close()

	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return fmt.Errorf("failed to read ladybug row: %w", err)
		}
		if fn == nil {
			continue
		}
		row, err := tuple.GetAsSlice()
		if err != nil {
			return fmt.Errorf("failed to decode ladybug row: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// prepare returns the cached statement for cypher, preparing it on first use.
// Caller must hold mu.
func (b *LadybugBackend) prepare(cypher string) (*ladybug.PreparedStatement, error) {
	if stmt, ok := b.stmts[cypher]; ok {
		return stmt, nil
	}
	stmt, err := b.conn.Prepare(cypher)
	if err != nil {
		return nil, err
	}
	b.stmts[cypher] = stmt
	return stmt, nil
}

// EnsureSchema creates the tables, treating "already exists" as success.
func (b *LadybugBackend) EnsureSchema(ctx context.Context) error {
	for _, q := range ladybugSchemaQueries {
		if err := b.createTable(ctx, q); err != nil {
			if errors.Is(err, storage.ErrSchemaExists) {
				continue
			}
			return fmt.Errorf("failed to create ladybug schema: %w", err)
		}
	}
	return nil
}

func (b *LadybugBackend) createTable(ctx context.Context, ddl string) error {
	err := b.query(ctx, ddl, nil, nil)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("%w: %v", storage.ErrSchemaExists, err)
	}
	return err
}

func (b *LadybugBackend) UpsertNode(ctx context.Context, node types.Node) error {
	return b.query(ctx, ladybugUpsertNodeQuery, map[string]any{
		"id": node.ID,
		"t":  node.EntityType,
		"d":  node.Description,
		"s":  node.SourceID,
	}, nil)
}

// UpsertEdge merges the relation. The MATCH yields no row when an endpoint is
// absent, so a zero count means nothing was written.
func (b *LadybugBackend) UpsertEdge(ctx context.Context, edge types.Edge) error {
	edge = edge.WithDefaults()
	var merged int64
	err := b.query(ctx, ladybugUpsertEdgeQuery, map[string]any{
		"src": edge.Source,
		"tgt": edge.Target,
		"w":   edge.Weight,
		"d":   edge.Description,
		"k":   edge.Keywords,
		"s":   edge.SourceID,
	}, func(row []any) error {
		if len(row) == 0 {
			return nil
		}
		if v, ok := valueInt64(row[0]); ok {
			merged = v
		}
		return nil
	})
	if err != nil {
		return err
	}
	if merged == 0 {
		return fmt.Errorf("%w: %s -> %s not in ladybug database", storage.ErrMissingEndpoint, edge.Source, edge.Target)
	}
	return nil
}

func (b *LadybugBackend) DeleteNode(ctx context.Context, id string) error {
	return b.query(ctx, ladybugDeleteNodeQuery, map[string]any{"id": id}, nil)
}

func (b *LadybugBackend) ScanNodes(ctx context.Context, fn func(types.Node) error) error {
	return b.query(ctx, ladybugScanNodesQuery, nil, func(row []any) error {
		if len(row) < 4 {
			return fmt.Errorf("unexpected ladybug node row width %d", len(row))
		}
		return fn(types.Node{
			ID:          valueString(row[0]),
			EntityType:  valueString(row[1]),
			Description: valueString(row[2]),
			SourceID:    valueString(row[3]),
		})
	})
}

func (b *LadybugBackend) ScanEdges(ctx context.Context, fn func(types.Edge) error) error {
	return b.query(ctx, ladybugScanEdgesQuery, nil, func(row []any) error {
		if len(row) < 6 {
			return fmt.Errorf("unexpected ladybug edge row width %d", len(row))
		}
		return fn(types.Edge{
			Source:      valueString(row[0]),
			Target:      valueString(row[1]),
			Weight:      valueFloat(row[2], types.DefaultEdgeWeight),
			Description: valueString(row[3]),
			Keywords:    valueString(row[4]),
			SourceID:    valueString(row[5]),
		})
	})
}

func (b *LadybugBackend) CountNodes(ctx context.Context) (int64, error) {
	return b.count(ctx, ladybugCountNodesQuery)
}

func (b *LadybugBackend) CountEdges(ctx context.Context) (int64, error) {
	return b.count(ctx, ladybugCountEdgesQuery)
}

func (b *LadybugBackend) count(ctx context.Context, cypher string) (int64, error) {
	var n int64
	err := b.query(ctx, cypher, nil, func(row []any) error {
		if len(row) == 0 {
			return fmt.Errorf("empty ladybug count row")
		}
		v, ok := valueInt64(row[0])
		if !ok {
			return fmt.Errorf("unexpected ladybug count type %T", row[0])
		}
		n = v
		return nil
	})
	return n, err
}

// Close closes the connection and database so the file lock is released.
func (b *LadybugBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for cypher, stmt := range b.stmts {
		stmt.Close()
		delete(b.stmts, cypher)
	}
	if b.conn != nil {
		b.conn.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
	return nil
}
