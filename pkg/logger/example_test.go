package logger_test

import (
	"log/slog"

	"github.com/soundprediction/pathrag/pkg/logger"
)

func ExampleNewDefaultLogger() {
	// Create a logger with default settings
	log := logger.NewDefaultLogger(slog.LevelDebug)

	// Log different levels
	log.Debug("This is a debug message")
	log.Info("This is an info message")
	log.Info("Persisting graph to disk")  // Will be green in terminal
	log.Warn("This is a warning message") // Will be yellow in terminal
	log.Error("This is an error message") // Will be red in terminal
}

func ExampleNew() {
	// Create a logger from configuration values
	log, err := logger.New(nil, "json", "info")
	if err != nil {
		panic(err)
	}
	_ = log
}
