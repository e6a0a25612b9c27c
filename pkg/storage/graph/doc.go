// Package graph provides the entity-relation graph stores.
//
// MemoryStore holds a directed graph in memory and persists it as a JSON
// node-link document at <working_dir>/graph_<namespace>.json. There is at
// most one edge per ordered (source, target) pair, and edges can only be
// added between existing nodes.
//
// DurableStore layers a storage.DurableBackend under a MemoryStore. Reads are
// served from memory. Writes go to memory first and then to the backend, and
// every backend call runs on a bounded worker pool and is awaited before the
// write returns. A backend failure is reported as a
// *storage.DurableWriteError and the memory change is kept, so callers can
// retry the write or call Rehydrate to resynchronize from the backend.
//
// Two backends are provided: LadybugBackend, an embedded graph database
// stored at <working_dir>/ladybug_<namespace> (requires cgo), and
// Neo4jBackend for a Neo4j server, where the namespace is stored as a
// property on every node and relationship.
package graph
