package middleware

import (
	"context"

	"github.com/angelmondragon/raamul-storefront/pkg/enums"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

func fromContext[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}

func withValue(ctx context.Context, key ctxKey, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// UserIDFromContext returns the authenticated account id set by Auth.
func UserIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, userIDKey)
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	return fromContext[enums.UserRole](ctx, roleKey)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, userIDKey, userID)
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return withValue(ctx, roleKey, role)
}
