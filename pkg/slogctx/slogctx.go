// Package slogctx threads a slog logger through context.Context so deeply
// nested calls log through the logger the caller configured.
package slogctx

import (
	"context"
	"log/slog"
)

type _loggerKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, _loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, falling back to
// slog.Default() when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(_loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// With returns a copy of ctx whose logger carries the extra attributes.
func With(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(args...))
}
