// Package storage defines the namespace-scoped storage contracts used by
// pathrag: a key-value store, a vector store and a property graph store.
//
// Implementations live in the kv, vector and graph subpackages. Every store
// instance is bound to one namespace under a working directory and owns the
// files or directories named by NamespacePath. Stores are safe for concurrent
// use by multiple goroutines within one process; multiple processes writing
// the same working directory are not supported.
package storage
