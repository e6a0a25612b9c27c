// Package vector provides namespace-scoped vector stores with cosine
// similarity search.
//
// Two variants share the same semantics:
//   - NanoStore keeps normalized vectors in memory and persists them to
//     <working_dir>/vdb_<namespace>.json on IndexDoneCallback.
//   - BadgerStore persists every vector in a badger database at
//     <working_dir>/badger_vdb_<namespace> and answers queries by full scan.
//
// Every vector in a namespace has the dimension fixed at construction. A
// vector of any other length, on upsert or query, fails with a
// *storage.DimensionMismatchError. Scores are cosine similarity in [-1, 1].
package vector
