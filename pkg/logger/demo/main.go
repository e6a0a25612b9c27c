package main

import (
	"log/slog"

	"github.com/soundprediction/pathrag/pkg/logger"
)

func main() {
	// Create a colored logger
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    PathRAG Colored Logger Demo")
	log.Info("============================================")

	log.Debug("Debug message - gray")
	log.Info("Info message - standard color")
	log.Info("Persisting graph namespace - green!")
	log.Info("Upserted vectors", "namespace", "entities", "count", 42)
	log.Info("Rehydrated graph from durable backend", "nodes", 1200, "edges", 3400)
	log.Warn("Node ALICE not found in the graph for deletion.")
	log.Error("Durable graph write failed", "op", "upsert_node", "key", "ALICE")

	log.Info("Demo complete!")
}
