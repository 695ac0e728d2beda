package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	callerContextKey contextKey = iota
)

// WithCaller attaches the authenticated account ID to the context.
// Authentication itself happens outside of this module.
func WithCaller(ctx context.Context, accountID uuid.UUID) context.Context {
	return context.WithValue(ctx, callerContextKey, accountID)
}

// CallerFromContext extracts the authenticated account ID from the context.
func CallerFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
