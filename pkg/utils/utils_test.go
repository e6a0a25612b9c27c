package utils_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soundprediction/pathrag/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotProductOfNormalizedVectors(t *testing.T) {
	cos := func(a, b []float32) float64 { return utils.DotProduct(utils.Normalize(a), utils.Normalize(b)) }
	assert.InDelta(t, 1.0, cos([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, -1.0, cos([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, 0.0, cos([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, 0.0, utils.DotProduct([]float32{1}, []float32{1, 0}))
}

func TestNormalize(t *testing.T) {
	n := utils.Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, utils.Magnitude(n), 1e-6)
	assert.InDelta(t, 0.6, float64(n[0]), 1e-6)

	zero := utils.Normalize([]float32{0, 0, 0})
	assert.Len(t, zero, 3)
	assert.Equal(t, 0.0, utils.Magnitude(zero))
}

func TestTopKByScore(t *testing.T) {
	items := []utils.ScoredItem[string]{
		{Item: "a", Score: 0.1},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.7},
	}

	t.Run("k smaller than input", func(t *testing.T) {
		top := utils.TopKByScore(items, 2)
		require.Len(t, top, 2)
		assert.Equal(t, "b", top[0].Item)
		assert.Equal(t, "d", top[1].Item)
	})

	t.Run("k larger than input sorts everything", func(t *testing.T) {
		top := utils.TopKByScore(items, 10)
		require.Len(t, top, 4)
		assert.Equal(t, []string{"b", "d", "c", "a"}, []string{top[0].Item, top[1].Item, top[2].Item, top[3].Item})
	})

	t.Run("non-positive k", func(t *testing.T) {
		assert.Nil(t, utils.TopKByScore(items, 0))
	})
}

func TestComputeMDHashID(t *testing.T) {
	id := utils.ComputeMDHashID("Alice", "ent-")
	assert.Equal(t, "ent-64489c85dc2fe0787b85cd87214b3810", id)
	assert.Equal(t, id, utils.ComputeMDHashID("Alice", "ent-"))
	assert.NotEqual(t, id, utils.ComputeMDHashID("Bob", "ent-"))
}

func TestSubmitAndWait(t *testing.T) {
	pool, err := utils.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	ctx := context.Background()

	t.Run("returns value", func(t *testing.T) {
		v, err := utils.SubmitAndWait(ctx, pool, func() (float64, error) { return math.Pi, nil })
		require.NoError(t, err)
		assert.Equal(t, math.Pi, v)
	})

	t.Run("returns error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := utils.SubmitAndWait(ctx, pool, func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("recovers panic", func(t *testing.T) {
		_, err := utils.SubmitAndWait(ctx, pool, func() (int, error) { panic("kaboom") })
		var pe *utils.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "kaboom", pe.Value)
	})

	t.Run("awaits running task past ctx deadline", func(t *testing.T) {
		tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		var finished atomic.Bool
		v, err := utils.SubmitAndWait(tctx, pool, func() (int, error) {
			time.Sleep(100 * time.Millisecond)
			finished.Store(true)
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.True(t, finished.Load(), "result is only returned once the task is done")
	})

	t.Run("done ctx is not submitted", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		var ran atomic.Bool
		_, err := utils.SubmitAndWait(cctx, pool, func() (int, error) {
			ran.Store(true)
			return 1, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ran.Load())
	})

	t.Run("nil pool", func(t *testing.T) {
		_, err := utils.SubmitAndWait(ctx, nil, func() (int, error) { return 1, nil })
		assert.Error(t, err)
	})
}
