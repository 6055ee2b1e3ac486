// Package logging defines the minimal structured-logging interface used
// across castship. The default implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// key-value pairs:
//
//	log.Info(ctx, "deploying", "destination", id, "mode", mode)
type Logger interface {
	// Debug logs fine-grained diagnostics (per-artifact sync decisions).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions (legacy config migration,
	// sidecar read failures treated as absent).
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
