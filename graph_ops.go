package pathrag

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/storage/vector"
	"github.com/soundprediction/pathrag/pkg/types"
)

// UpsertEntity writes node to the graph under EntityKey(node.ID) and indexes
// it in the entities namespace. A durable graph failure is returned after
// the vector write.
func (c *Client) UpsertEntity(ctx context.Context, node types.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	node.ID = EntityKey(node.ID)

	graphErr := c.stores.Graph.UpsertNode(ctx, node)
	if graphErr != nil && !storage.IsDurableWriteError(graphErr) {
		return fmt.Errorf("failed to upsert entity %s: %w", node.ID, graphErr)
	}

	_, err := c.stores.Entities.Upsert(ctx, map[string]types.VectorInput{
		vector.EntityID(node.ID): {
			Content: node.ID + node.Description,
			Payload: map[string]any{EntityNameField: node.ID},
		},
	})
	if err != nil {
		return errors.Join(graphErr, fmt.Errorf("failed to index entity %s: %w", node.ID, err))
	}
	return graphErr
}

// UpsertRelation writes edge to the graph with both endpoints normalized by
// EntityKey and indexes it in the relationships namespace. Both endpoints
// must already exist.
func (c *Client) UpsertRelation(ctx context.Context, edge types.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	edge.Source = EntityKey(edge.Source)
	edge.Target = EntityKey(edge.Target)

	graphErr := c.stores.Graph.UpsertEdge(ctx, edge)
	if graphErr != nil && !storage.IsDurableWriteError(graphErr) {
		return fmt.Errorf("failed to upsert relation %s -> %s: %w", edge.Source, edge.Target, graphErr)
	}

	_, err := c.stores.Relationships.Upsert(ctx, map[string]types.VectorInput{
		vector.RelationID(edge.Source, edge.Target): {
			Content: edge.Keywords + edge.Source + edge.Target + edge.Description,
			Payload: map[string]any{
				vector.SourceIDField: edge.Source,
				vector.TargetIDField: edge.Target,
			},
		},
	})
	if err != nil {
		return errors.Join(graphErr, fmt.Errorf("failed to index relation %s -> %s: %w", edge.Source, edge.Target, err))
	}
	return graphErr
}

// DeleteByEntity removes an entity from the vector namespaces and the graph,
// then persists all stores. Deleting an unknown entity is not an error.
func (c *Client) DeleteByEntity(ctx context.Context, entityName string) error {
	key := EntityKey(entityName)

	if err := c.stores.Entities.DeleteEntity(ctx, key); err != nil {
		return fmt.Errorf("failed to delete entity vector %s: %w", key, err)
	}
	if err := c.stores.Relationships.DeleteRelation(ctx, key); err != nil {
		return fmt.Errorf("failed to delete relation vectors of %s: %w", key, err)
	}
	if err := c.stores.Graph.DeleteNode(ctx, key); err != nil {
		return fmt.Errorf("failed to delete graph node %s: %w", key, err)
	}

	c.logger.Info("Entity and its relationships have been deleted.", "entity", key)
	return c.IndexDone(ctx)
}
