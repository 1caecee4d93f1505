// ABOUTME: Request-scoped logging context: request ID, provider and use case.
// ABOUTME: TraceContextHandler copies these values onto every record logged with the context.
package logger

import "context"

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	ProviderKey  ContextKey = "provider"
	UseCaseKey   ContextKey = "use_case"
)

var contextKeys = []ContextKey{RequestIDKey, ProviderKey, UseCaseKey}

// WithRequestID adds the request ID to context for observability
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithProvider adds the generation provider name to context
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// WithUseCase adds the advisory use case name to context
func WithUseCase(ctx context.Context, useCase string) context.Context {
	return context.WithValue(ctx, UseCaseKey, useCase)
}

// RequestIDFrom returns the request ID stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
