// Package kv provides the namespace-scoped key-value stores: a JSON file
// store that keeps the namespace in memory and writes it on
// IndexDoneCallback, and a badger-backed store that persists each write.
package kv
