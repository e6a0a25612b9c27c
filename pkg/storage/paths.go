package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidNamespace is returned when a namespace cannot be used as part of
// a file name.
var ErrInvalidNamespace = errors.New("invalid namespace: empty or contains path separators")

// Kinds name the on-disk artifact of a store. The artifact for a namespace is
// <working_dir>/<kind>_<namespace>, with a .json suffix for file-backed kinds.
const (
	KindKVJSON       = "kv_store"
	KindKVBadger     = "badger_kv"
	KindVectorJSON   = "vdb"
	KindVectorBadger = "badger_vdb"
	KindGraphJSON    = "graph"
	KindGraphDurable = "ladybug"
)

// ValidateNamespace rejects namespaces that would escape the working
// directory once joined into a path.
func ValidateNamespace(namespace string) error {
	if namespace == "" ||
		strings.Contains(namespace, "..") ||
		strings.ContainsAny(namespace, `/\`) ||
		strings.ContainsRune(namespace, '\x00') {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return nil
}

// NamespacePath returns <workingDir>/<kind>_<namespace><ext>.
func NamespacePath(workingDir, kind, namespace, ext string) string {
	return filepath.Join(workingDir, fmt.Sprintf("%s_%s%s", kind, namespace, ext))
}

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
