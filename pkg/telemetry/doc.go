// Package telemetry records error level log entries to Parquet files so that
// failures of durable writes and embedding calls can be analyzed offline.
package telemetry
