//go:build cgo

package graph

import (
	"context"
	"fmt"
)

// CountQuery runs a single-value COUNT query against the backend.
func (b *LadybugBackend) CountQuery(ctx context.Context, cypher string, params map[string]any) (int64, error) {
	var n int64
	err := b.query(ctx, cypher, params, func(row []any) error {
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
