package http

import (
	"context"

	"gearhire-backend/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

func contextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated caller, or nil on anonymous
// requests.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}
