package utils

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

type poolResult[T any] struct {
	value T
	err   error
}

// SubmitAndWait runs fn on the pool and blocks until it finishes. ctx is
// checked before the task is submitted; once fn is running its result is
// always awaited and returned, even if ctx ends in the meantime.
func SubmitAndWait[T any](ctx context.Context, pool *ants.Pool, fn func() (T, error)) (T, error) {
	var zero T
	if pool == nil {
		return zero, fmt.Errorf("worker pool is nil")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan poolResult[T], 1)
	task := func() {
		var res poolResult[T]
		func() {
			defer RecoverAsError(&res.err)
			res.value, res.err = fn()
		}()
		done <- res
	}

	if err := pool.Submit(task); err != nil {
		return zero, fmt.Errorf("failed to submit task to worker pool: %w", err)
	}

	res := <-done
	return res.value, res.err
}

// NewPool creates a bounded ants pool. Non-positive sizes fall back to 1.
func NewPool(size int) (*ants.Pool, error) {
	if size < 1 {
		size = 1
	}
	return ants.NewPool(size)
}
