// Package requestctx carries per-request values shared by middleware, handlers and services.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	traceKey  struct{}
	tillKey   struct{}
)

var noopLogger = zap.NewNop()

// TraceInfo is the trace continued or started for the request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// TillInfo identifies the till session and cart a request acts on.
type TillInfo struct {
	SessionID string
	CartID    string
}

func with(ctx context.Context, key, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func lookup[T any](ctx context.Context, key any) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithLogger sets the request logger. A nil logger stores the no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noopLogger
	}
	return with(ctx, loggerKey{}, logger)
}

// Logger returns the request logger, or the shared no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := lookup[*zap.Logger](ctx, loggerKey{}); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger is the logger Logger falls back to. Compare against it to detect an unset logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores trace ids for logs and error bodies.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return with(ctx, traceKey{}, info)
}

// Trace returns the stored trace ids.
func Trace(ctx context.Context) (TraceInfo, bool) {
	return lookup[TraceInfo](ctx, traceKey{})
}

// TraceID is Trace(ctx).TraceID, empty when absent.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithTill records the till session for the request.
func WithTill(ctx context.Context, info TillInfo) context.Context {
	return with(ctx, tillKey{}, info)
}

// Till returns the till session attached by the session middleware. Info without a cart id
// is treated as absent.
func Till(ctx context.Context) (TillInfo, bool) {
	info, ok := lookup[TillInfo](ctx, tillKey{})
	if !ok || info.CartID == "" {
		return TillInfo{}, false
	}
	return info, true
}
