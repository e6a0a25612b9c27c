package graph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConversions(t *testing.T) {
	assert.Equal(t, "", valueString(nil))
	assert.Equal(t, "abc", valueString("abc"))
	assert.Equal(t, "42", valueString(int64(42)))

	assert.Equal(t, 2.5, valueFloat(2.5, 1))
	assert.Equal(t, 3.0, valueFloat(int64(3), 1))
	assert.Equal(t, 1.0, valueFloat(nil, 1))
	assert.Equal(t, 1.0, valueFloat("x", 1))

	for _, v := range []any{int64(7), int32(7), 7, uint64(7), uint32(7)} {
		n, ok := valueInt64(v)
		assert.True(t, ok)
		assert.Equal(t, int64(7), n)
	}
	_, ok := valueInt64(7.0)
	assert.False(t, ok)
}

func TestRecordInt64(t *testing.T) {
	record := &db.Record{Keys: []string{"count", "name"}, Values: []any{int64(3), "x"}}

	n, err := recordInt64(record, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = recordInt64(record, "missing")
	assert.Error(t, err)

	_, err = recordInt64(record, "name")
	var tce *TypeConversionError
	require.ErrorAs(t, err, &tce)
	assert.Equal(t, "name", tce.Field)
	assert.Equal(t, "string", tce.Actual)
}
