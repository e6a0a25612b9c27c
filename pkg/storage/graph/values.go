package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

// TypeConversionError represents an error during type conversion from database types.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

// valueString returns v as a string. NULL becomes "" and other scalar types
// are formatted.
func valueString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// valueFloat returns v as a float64, or def for NULL and non-numeric values.
func valueFloat(v any, def float64) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case float32:
		return float64(f)
	case int64:
		return float64(f)
	case int32:
		return float64(f)
	case int:
		return float64(f)
	default:
		return def
	}
}

// valueInt64 accepts the integer widths database drivers return for counts.
func valueInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int64:
		return i, true
	case int32:
		return int64(i), true
	case int:
		return int64(i), true
	case uint64:
		return int64(i), true
	case uint32:
		return int64(i), true
	default:
		return 0, false
	}
}

// recordValue returns the value of key in a Neo4j record, or an error when
// the key is missing.
func recordValue(record *db.Record, key string) (any, error) {
	v, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no field %q", key)
	}
	return v, nil
}

// recordInt64 returns key from record as an int64.
func recordInt64(record *db.Record, key string) (int64, error) {
	v, err := recordValue(record, key)
	if err != nil {
		return 0, err
	}
	i, ok := valueInt64(v)
	if !ok {
		return 0, &TypeConversionError{Expected: "int64", Actual: fmt.Sprintf("%T", v), Field: key}
	}
	return i, nil
}
