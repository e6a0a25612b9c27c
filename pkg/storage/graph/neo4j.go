package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// Neo4jBackend stores the graph in a Neo4j database. Several namespaces can
// share one database; every node and relationship carries a namespace
// property and every query is scoped by it.
type Neo4jBackend struct {
	client    neo4j.DriverWithContext
	database  string
	namespace string
	logger    *slog.Logger
}

var _ storage.DurableBackend = (*Neo4jBackend)(nil)

var neo4jSchemaQueries = []string{
	"CREATE INDEX entity_namespace_id IF NOT EXISTS FOR (n:Entity) ON (n.namespace, n.id)",
}

// NewNeo4jBackend connects to cfg.URI and verifies connectivity.
func NewNeo4jBackend(ctx context.Context, cfg config.Neo4jConfig, namespace string, logger *slog.Logger) (*Neo4jBackend, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		client.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	return &Neo4jBackend{
		client:    client,
		database:  database,
		namespace: namespace,
		logger:    logger.With("backend", "neo4j", "database", database),
	}, nil
}

func (n *Neo4jBackend) write(ctx context.Context, query string, params map[string]any) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params["ns"] = n.namespace
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// writeSingle runs a write query that returns exactly one record.
func (n *Neo4jBackend) writeSingle(ctx context.Context, query string, params map[string]any) (*db.Record, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params["ns"] = n.namespace
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*db.Record), nil
}

func (n *Neo4jBackend) read(ctx context.Context, query string, fn func(*db.Record) error) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"ns": n.namespace})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return err
	}

	for _, record := range result.([]*db.Record) {
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

func (n *Neo4jBackend) EnsureSchema(ctx context.Context) error {
	for _, q := range neo4jSchemaQueries {
		if err := n.createIndex(ctx, q); err != nil {
			if errors.Is(err, storage.ErrSchemaExists) {
				continue
			}
			return fmt.Errorf("failed to create neo4j schema: %w", err)
		}
	}
	return nil
}

func (n *Neo4jBackend) createIndex(ctx context.Context, ddl string) error {
	err := n.write(ctx, ddl, map[string]any{})
	if err != nil && (strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "EquivalentSchemaRuleAlreadyExists")) {
		return fmt.Errorf("%w: %v", storage.ErrSchemaExists, err)
	}
	return err
}

func (n *Neo4jBackend) UpsertNode(ctx context.Context, node types.Node) error {
	return n.write(ctx, `
		MERGE (e:Entity {namespace: $ns, id: $id})
		SET e.entity_type = $t, e.description = $d, e.source_id = $s
	`, map[string]any{
		"id": node.ID,
		"t":  node.EntityType,
		"d":  node.Description,
		"s":  node.SourceID,
	})
}

// UpsertEdge merges the relation and fails with storage.ErrMissingEndpoint
// when the MATCH finds no endpoint pair.
func (n *Neo4jBackend) UpsertEdge(ctx context.Context, edge types.Edge) error {
	edge = edge.WithDefaults()
	record, err := n.writeSingle(ctx, `
		MATCH (a:Entity {namespace: $ns, id: $src}), (b:Entity {namespace: $ns, id: $tgt})
		MERGE (a)-[r:Relation]->(b)
		SET r.namespace = $ns, r.weight = $w, r.description = $d, r.keywords = $k, r.source_id = $s
		RETURN count(r) AS count
	`, map[string]any{
		"src": edge.Source,
		"tgt": edge.Target,
		"w":   edge.Weight,
		"d":   edge.Description,
		"k":   edge.Keywords,
		"s":   edge.SourceID,
	})
	if err != nil {
		return err
	}
	merged, err := recordInt64(record, "count")
	if err != nil {
		return err
	}
	if merged == 0 {
		return fmt.Errorf("%w: %s -> %s not in neo4j namespace %s", storage.ErrMissingEndpoint, edge.Source, edge.Target, n.namespace)
	}
	return nil
}

func (n *Neo4jBackend) DeleteNode(ctx context.Context, id string) error {
	return n.write(ctx, `
		MATCH (e:Entity {namespace: $ns, id: $id})
		DETACH DELETE e
	`, map[string]any{"id": id})
}

func (n *Neo4jBackend) ScanNodes(ctx context.Context, fn func(types.Node) error) error {
	return n.read(ctx, `
		MATCH (e:Entity {namespace: $ns})
		RETURN e.id AS id, e.entity_type AS entity_type, e.description AS description, e.source_id AS source_id
	`, func(record *db.Record) error {
		return fn(types.NodeFromAttrs(recordString(record, "id"), record.AsMap()))
	})
}

func (n *Neo4jBackend) ScanEdges(ctx context.Context, fn func(types.Edge) error) error {
	return n.read(ctx, `
		MATCH (a:Entity {namespace: $ns})-[r:Relation]->(b:Entity {namespace: $ns})
		RETURN a.id AS source, b.id AS target, r.weight AS weight,
		       r.description AS description, r.keywords AS keywords, r.source_id AS source_id
	`, func(record *db.Record) error {
		return fn(types.EdgeFromAttrs(recordString(record, "source"), recordString(record, "target"), record.AsMap()))
	})
}

func (n *Neo4jBackend) CountNodes(ctx context.Context) (int64, error) {
	return n.count(ctx, "MATCH (e:Entity {namespace: $ns}) RETURN count(e) AS count")
}

func (n *Neo4jBackend) CountEdges(ctx context.Context) (int64, error) {
	return n.count(ctx, "MATCH (:Entity {namespace: $ns})-[r:Relation]->(:Entity {namespace: $ns}) RETURN count(r) AS count")
}

func (n *Neo4jBackend) count(ctx context.Context, query string) (int64, error) {
	var total int64
	err := n.read(ctx, query, func(record *db.Record) error {
		v, err := recordInt64(record, "count")
		if err != nil {
			return err
		}
		total = v
		return nil
	})
	return total, err
}

func (n *Neo4jBackend) Close() error {
	return n.client.Close(context.Background())
}

func recordString(record *db.Record, key string) string {
	v, _ := record.Get(key)
	return valueString(v)
}
