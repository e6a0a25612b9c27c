// Package types defines the core data types for the pathrag storage layer.
//
// This package contains the fundamental types shared by every store:
//   - Record: A key-value record held by a KV store
//   - VectorInput / VectorEntry / VectorMatch: Vector store inputs and results
//   - Node / Edge: Entities and relations of the knowledge graph
//   - QueryMode / QueryParam: Retrieval mode selection validated at the boundary
//
// # Graph Attributes
//
// Nodes carry entity_type, description and source_id. Edges are directed and
// carry weight, description, keywords and source_id. A (source, target) pair is
// a single logical relation: upserting the same pair again overwrites its
// attributes.
//
// # Validation
//
// Types provide Validate() methods for input validation:
//
//	node := types.Node{ID: "Alice", EntityType: "person"}
//	if err := node.Validate(); err != nil {
//	    // Handle validation error
//	}
//
// # JSON Serialization
//
// All types are JSON-serializable; the tag names match the on-disk documents
// written by the file-backed stores.
package types
