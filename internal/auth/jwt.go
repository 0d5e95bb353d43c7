// Package auth verifies bearer tokens and carries the authenticated user through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/at-ishikawa/leakdrill/internal/config"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

var (
	hmacMethods       = []string{"HS256", "HS384", "HS512"}
	asymmetricMethods = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"}
)

// TokenVerifier resolves a raw bearer token to a user id.
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// Verifier validates JWTs signed with a shared secret, a PEM public key or keys served from a JWKS endpoint.
type Verifier struct {
	keyfunc jwt.Keyfunc
	options []jwt.ParserOption
}

// NewVerifier builds a Verifier from cfg. A JWKS URL wins over a public key file,
// which wins over the shared secret. The JWKS is refreshed in the background until ctx is done.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (*Verifier, error) {
	var (
		kf      jwt.Keyfunc
		methods []string
	)
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("keyfunc.NewDefaultCtx(%s) > %w", cfg.JWKSURL, err)
		}
		kf, methods = jwks.Keyfunc, asymmetricMethods
	case cfg.PublicKeyFile != "":
		key, err := readPublicKey(cfg.PublicKeyFile)
		if err != nil {
			return nil, err
		}
		kf = func(*jwt.Token) (any, error) { return key, nil }
		methods = asymmetricMethods
	case cfg.JWTSecret != "":
		secret := []byte(cfg.JWTSecret)
		kf = func(*jwt.Token) (any, error) { return secret, nil }
		methods = hmacMethods
	default:
		return nil, errors.New("auth: one of jwt_secret, public_key_file or jwks_url is required")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		options = append(options, jwt.WithAudience(cfg.Audience...))
	}
	return &Verifier{keyfunc: kf, options: options}, nil
}

func readPublicKey(path string) (any, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pem); err == nil {
		return key, nil
	}
	key, err := jwt.ParseEdPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse public key %s: unsupported key type", path)
	}
	return key, nil
}

// Verify returns the user id of a valid token.
func (v *Verifier) Verify(tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", ErrMissingToken
	}
	token, err := jwt.Parse(tokenString, v.keyfunc, v.options...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	userID := UserIDFromClaims(claims)
	if userID == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return userID, nil
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
