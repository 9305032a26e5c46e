package services

import "context"

type contextKey string

const (
	gidKey       contextKey = "gid"
	operationKey contextKey = "operation"
	requestIDKey contextKey = "request_id"
)

// WithGID annotates context with the daemon task identifier.
func WithGID(ctx context.Context, gid string) context.Context {
	if gid == "" {
		return ctx
	}
	return context.WithValue(ctx, gidKey, gid)
}

// GIDFromContext extracts the daemon task identifier if present.
func GIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(gidKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithOperation annotates context with the supervisor operation name (add, remove, merge).
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(operationKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
