// Package utils provides utility functions shared by the pathrag stores.
//
// This package contains helpers for:
//   - Vector math and top-K selection (vector.go)
//   - Content hashing for stable ids (hash.go)
//   - Bounded worker pool dispatch with awaited results (pool.go)
//   - Panic recovery for pooled work (recovery.go)
package utils
