package types_test

import (
	"errors"
	"testing"

	"github.com/soundprediction/pathrag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryMode(t *testing.T) {
	t.Run("accepts every supported mode", func(t *testing.T) {
		for _, m := range types.QueryModes() {
			got, err := types.ParseQueryMode(string(m))
			require.NoError(t, err)
			assert.Equal(t, m, got)
		}
	})

	t.Run("rejects unknown mode with descriptive error", func(t *testing.T) {
		_, err := types.ParseQueryMode("bad")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidQueryMode))
		assert.Contains(t, err.Error(), `"bad"`)
		assert.Contains(t, err.Error(), "hybrid")
	})

	t.Run("rejects empty mode", func(t *testing.T) {
		_, err := types.ParseQueryMode("")
		assert.ErrorIs(t, err, types.ErrInvalidQueryMode)
	})
}

func TestQueryParamValidate(t *testing.T) {
	p := types.DefaultQueryParam()
	require.NoError(t, p.Validate())

	p.Mode = "bad"
	assert.ErrorIs(t, p.Validate(), types.ErrInvalidQueryMode)

	p = types.DefaultQueryParam()
	p.TopK = 0
	assert.ErrorIs(t, p.Validate(), types.ErrInvalidLimit)
}

func TestNodeFromAttrs(t *testing.T) {
	n := types.NodeFromAttrs("A", map[string]any{
		"entity_type": "person",
		"description": "a",
	})
	assert.Equal(t, "A", n.ID)
	assert.Equal(t, "person", n.EntityType)
	assert.Equal(t, "a", n.Description)
	assert.Equal(t, "", n.SourceID, "missing attributes become empty strings")

	empty := types.Node{}
	assert.ErrorIs(t, empty.Validate(), types.ErrEmptyID)
}

func TestEdgeFromAttrs(t *testing.T) {
	t.Run("weight defaults to 1.0", func(t *testing.T) {
		e := types.EdgeFromAttrs("A", "B", map[string]any{"description": "knows"})
		assert.Equal(t, types.DefaultEdgeWeight, e.Weight)
		assert.Equal(t, "knows", e.Description)
	})

	t.Run("weight parsed from string", func(t *testing.T) {
		e := types.EdgeFromAttrs("A", "B", map[string]any{"weight": "2.5"})
		assert.Equal(t, 2.5, e.Weight)
	})

	t.Run("zero weight replaced by default", func(t *testing.T) {
		e := types.Edge{Source: "A", Target: "B"}.WithDefaults()
		assert.Equal(t, types.DefaultEdgeWeight, e.Weight)
	})

	t.Run("validation", func(t *testing.T) {
		e := types.Edge{Target: "B"}
		assert.ErrorIs(t, e.Validate(), types.ErrEmptySource)
		e = types.Edge{Source: "A"}
		assert.ErrorIs(t, e.Validate(), types.ErrEmptyTarget)
	})
}

func TestRecordHelpers(t *testing.T) {
	r := types.Record{"content": "1", "n": 2}
	c := r.Clone()
	c["content"] = "changed"
	assert.Equal(t, "1", r["content"])
	assert.Nil(t, types.Record(nil).Clone())
}
