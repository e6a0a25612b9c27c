// Package pathrag provides the storage layer of a path-based retrieval
// augmented generation system.
//
// A working directory holds one store per namespace: key-value records for
// documents, chunks and cached LLM responses; vector namespaces for
// entities, relationships and chunks; and a directed property graph of
// entities and relations. The graph is served from memory and can be written
// through to an embedded Ladybug database or to Neo4j.
//
// # Basic Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	emb, err := pathrag.NewEmbedder(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := pathrag.NewClient(ctx, cfg, emb, myRetriever, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Writing Entities
//
// Entity names are normalized with EntityKey before they reach the graph or
// the vector namespaces, so "Alice" and "\"ALICE\"" address the same node:
//
//	err = client.UpsertEntity(ctx, types.Node{ID: "Alice", EntityType: "person"})
//	err = client.UpsertRelation(ctx, types.Edge{Source: "Alice", Target: "Bob", Keywords: "friends"})
//
// Writes are buffered until IndexDone, which persists every namespace
// concurrently:
//
//	err = client.IndexDone(ctx)
//
// # Querying
//
// Query validates the mode (local, global, hybrid or naive) and hands the
// stores to the configured Retriever. Ranking and answer generation live in
// the Retriever, outside this module.
//
//	answer, err := client.Query(ctx, "Who does Alice know?", types.QueryParam{Mode: types.LocalQueryMode})
//
// # Durable Graphs
//
// With storage.graph set to "ladybug" or "neo4j" every graph mutation is
// applied in memory and then written to the backend. A backend failure is
// reported as *storage.DurableWriteError while the in-memory change is kept;
// Verify detects the divergence and Rehydrate rebuilds memory from the
// backend.
package pathrag
