// Package logging builds the service logger and carries a per-request
// logger through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type ctxKey struct{}

// New builds a logger writing to w at level ("debug", "info", "warn",
// "error"; unknown values mean info). format "json" selects JSON output,
// anything else text.
func New(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ForRequest returns a child of ctx whose logger is base tagged with requestID.
func ForRequest(ctx context.Context, base *slog.Logger, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, base.With("request_id", requestID))
}

// L returns the request logger stored in ctx. Outside a request it returns
// fallback, or slog.Default when fallback is nil.
func L(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
