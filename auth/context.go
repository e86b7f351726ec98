package auth

import (
	"context"

	"mucajeyadmin/models"
)

type contextKey string

const userContextKey contextKey = "auth_user"

func ContextWithUser(ctx context.Context, p models.Profile) context.Context {
	return context.WithValue(ctx, userContextKey, p)
}

// UserFromContext returns the authenticated user placed by the session middleware.
func UserFromContext(ctx context.Context) (models.Profile, bool) {
	p, ok := ctx.Value(userContextKey).(models.Profile)
	return p, ok
}
