package auth

import "context"

type contextKey struct{}

type identity struct {
	userID string
	token  string
}

// WithUser returns a copy of ctx carrying the authenticated user and the token it was proven with.
func WithUser(ctx context.Context, userID, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, identity{userID: userID, token: token})
}

// UserID returns the authenticated user of ctx.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(identity)
	if !ok || id.userID == "" {
		return "", false
	}
	return id.userID, true
}

// Token returns the raw bearer token of ctx.
func Token(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(identity)
	if !ok || id.token == "" {
		return "", false
	}
	return id.token, true
}
