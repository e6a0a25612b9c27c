package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaExists is returned by a durable backend when a table is already
	// defined. EnsureSchema swallows it.
	ErrSchemaExists = errors.New("schema already exists")

	// ErrMissingEndpoint is returned when an edge references a node that has
	// not been upserted.
	ErrMissingEndpoint = errors.New("edge endpoint does not exist")

	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrInvalidConfig      = errors.New("invalid storage configuration")
	ErrUnsupportedBackend = errors.New("unsupported storage backend")

	// ErrInconsistent is returned by verification when the in-memory graph and
	// the durable graph disagree.
	ErrInconsistent = errors.New("memory and durable graph are inconsistent")

	ErrClosed = errors.New("storage is closed")
)

// DurableWriteError reports that a graph mutation was applied to the
// in-memory graph but failed against the durable store. The in-memory change
// is not rolled back, so the two halves may diverge until the next
// successful write or a rehydrate.
type DurableWriteError struct {
	Op  string
	Key string
	Err error
}

func (e *DurableWriteError) Error() string {
	return fmt.Sprintf("durable %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *DurableWriteError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError is returned when a vector's length differs from the
// dimension fixed for the namespace.
type DimensionMismatchError struct {
	Namespace string
	ID        string
	Expected  int
	Actual    int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("namespace %s: query embedding has dimension %d, expected %d", e.Namespace, e.Actual, e.Expected)
	}
	return fmt.Sprintf("namespace %s: embedding for %q has dimension %d, expected %d", e.Namespace, e.ID, e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// IsDurableWriteError reports whether err carries a DurableWriteError.
func IsDurableWriteError(err error) bool {
	var dwe *DurableWriteError
	return errors.As(err, &dwe)
}
