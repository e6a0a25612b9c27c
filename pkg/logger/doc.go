// Package logger provides the slog handlers used by the pathrag command line
// and library: a colored line handler for terminals and constructors that
// select a handler from configuration.
package logger
