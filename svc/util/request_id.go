package util

import (
	"context"

	"github.com/google/uuid"
)

// Request ids ride the context so handlers and error paths can stamp
// log lines without threading an extra value through every call.

type requestIDKey struct{}

func NewRequestID() string {
	return uuid.NewString()
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the id stamped on the context. A context that
// never passed through the middleware gets a fresh id so log lines stay
// correlatable.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
