package graph

import "context"

// Clear removes every node and relationship of the namespace.
func (n *Neo4jBackend) Clear(ctx context.Context) error {
	return n.write(ctx, "MATCH (e:Entity {namespace: $ns}) DETACH DELETE e", map[string]any{})
}
