package types

import (
	"fmt"
	"strconv"
)

// DefaultEdgeWeight is applied when an edge is upserted without a weight.
const DefaultEdgeWeight = 1.0

// Edge is a directed relation between two entities. The (Source, Target) pair
// identifies the relation; upserting the same pair again overwrites attributes.
type Edge struct {
	Source      string  `json:"source" mapstructure:"source"`
	Target      string  `json:"target" mapstructure:"target"`
	Weight      float64 `json:"weight" mapstructure:"weight"`
	Description string  `json:"description" mapstructure:"description"`
	Keywords    string  `json:"keywords" mapstructure:"keywords"`
	SourceID    string  `json:"source_id" mapstructure:"source_id"`
}

// EdgePair identifies an edge by its endpoints.
type EdgePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Pair returns the endpoints of the edge.
func (e Edge) Pair() EdgePair {
	return EdgePair{Source: e.Source, Target: e.Target}
}

// Validate checks if the Edge has both endpoints set.
func (e *Edge) Validate() error {
	if e.Source == "" {
		return ErrEmptySource
	}
	if e.Target == "" {
		return ErrEmptyTarget
	}
	return nil
}

// WithDefaults returns a copy of the edge with a zero weight replaced by DefaultEdgeWeight.
func (e Edge) WithDefaults() Edge {
	if e.Weight == 0 {
		e.Weight = DefaultEdgeWeight
	}
	return e
}

// EdgeFromAttrs builds an Edge from a loosely typed attribute map. A missing
// or unparsable weight falls back to DefaultEdgeWeight.
func EdgeFromAttrs(source, target string, attrs map[string]any) Edge {
	return Edge{
		Source:      source,
		Target:      target,
		Weight:      attrFloat(attrs, "weight", DefaultEdgeWeight),
		Description: attrString(attrs, "description"),
		Keywords:    attrString(attrs, "keywords"),
		SourceID:    attrString(attrs, "source_id"),
	}
}

func attrFloat(attrs map[string]any, key string, def float64) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case fmt.Stringer:
		if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return f
		}
	}
	return def
}
