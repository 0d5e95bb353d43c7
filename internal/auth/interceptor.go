package auth

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
)

// NewInterceptor rejects unary calls without a valid bearer token and stores the user in the context.
func NewInterceptor(verifier TokenVerifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}
			token := BearerToken(req.Header().Get("Authorization"))
			userID, err := verifier.Verify(token)
			if err != nil {
				slog.Default().Debug("Rejected request",
					"procedure", req.Spec().Procedure,
					"error", err)
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithUser(ctx, userID, token), req)
		}
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
