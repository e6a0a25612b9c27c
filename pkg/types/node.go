package types

import "fmt"

// Node is an entity of the knowledge graph. ID is the primary key within a namespace.
type Node struct {
	ID          string `json:"id" mapstructure:"id"`
	EntityType  string `json:"entity_type" mapstructure:"entity_type"`
	Description string `json:"description" mapstructure:"description"`
	SourceID    string `json:"source_id" mapstructure:"source_id"`
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// NodeFromAttrs builds a Node from a loosely typed attribute map, as produced
// by extraction collaborators. Missing attributes become empty strings.
func NodeFromAttrs(id string, attrs map[string]any) Node {
	return Node{
		ID:          id,
		EntityType:  attrString(attrs, "entity_type"),
		Description: attrString(attrs, "description"),
		SourceID:    attrString(attrs, "source_id"),
	}
}

func attrString(attrs map[string]any, key string) string {
	v, ok := attrs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
