// Package logging defines the Logger interface used across TaskHub and an
// implementation backed by log/slog.
package logging

import "context"

// Logger is the minimal structured logging surface the application depends
// on. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}
