// Package logger provides the structured, levelled logger used across Feira,
// built on log/slog.
//
// The key extension over plain slog is WithCtx: middleware stores a
// request-scoped logger (pre-tagged with the request id) in the context, and
// every log line written through WithCtx is automatically correlated:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", order.ID)
//	// → time=... level=INFO msg="order placed" request_id=a1b2c3d4 order_id=42
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/feirahub/feira/config"
)

var L *slog.Logger

func init() {
	L = slog.New(baseHandler())
	slog.SetDefault(L)
}

func baseHandler() slog.Handler {
	switch config.AppEnv() {
	case "production", "prod":
		// Structured JSON for log aggregators.
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		// Human-readable for development.
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// Setup re-initialises the package logger, attaching the asynchronous MongoDB
// sink when MONGO_LOG_URI is configured. Returns a close function that
// flushes the sink; it is a no-op when no sink is attached.
func Setup() func() {
	uri := config.MongoLogURI()
	if uri == "" {
		return func() {}
	}

	sink, err := NewMongoSink(uri, config.MongoLogDatabase(), "logs")
	if err != nil {
		L.Warn("logger: mongo sink unavailable, stdout only", "error", err)
		return func() {}
	}

	L = slog.New(NewMultiHandler(baseHandler(), sink))
	slog.SetDefault(L)
	return sink.Close
}

// ─── Context-aware logger ─────────────────────────────────────────────────────

// ctxKey is the unexported key under which a per-request *slog.Logger lives.
type ctxKey struct{}

// WithCtx returns the request-scoped *slog.Logger stored in ctx by the Logger
// middleware, or the base logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
// Called by the Logger middleware — not usually needed in application code.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ─── Short-hand helpers (use base logger) ─────────────────────────────────────

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
