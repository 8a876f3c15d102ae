// Package logger sets up JSON slog output and carries request- or
// batch-scoped loggers through context.Context.
package logger
