package context

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// CorrelationIDKey is the context key for correlation IDs.
const CorrelationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context. It follows an HTTP
// request or a task run down to every call made to a destination jurisdiction.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID returns the correlation ID or an empty string.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns ctx unchanged when it already carries an ID,
// otherwise a child context with a fresh UUID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := GetCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

type usuarioKey struct{}

// WithUsuario records who triggers the work; the bitácora stores it.
func WithUsuario(ctx context.Context, usuario string) context.Context {
	return context.WithValue(ctx, usuarioKey{}, usuario)
}

// GetUsuario returns the usuario or an empty string.
func GetUsuario(ctx context.Context) string {
	if u, ok := ctx.Value(usuarioKey{}).(string); ok {
		return u
	}
	return ""
}
