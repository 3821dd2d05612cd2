// Package domain holds the bearer token contract for the HTTP boundary.
package domain

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/apperror"
)

// Claims is the JWT payload. Subject carries the snowflake id of the caller.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type IssueRequest struct {
	Principal principal.Principal
	TTL       time.Duration
}

type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	// Authenticate verifies a raw bearer token and resolves its principal.
	Authenticate(ctx context.Context, raw string) (principal.Principal, error)
	Issue(ctx context.Context, req IssueRequest) (IssuedToken, error)
	Revoke(ctx context.Context, raw string) error
}

// RevocationStore remembers revoked token ids until they would have expired.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

var (
	ErrInvalidToken     = apperror.New(apperror.KindUnauthorized, "invalid_token")
	ErrTokenExpired     = apperror.New(apperror.KindUnauthorized, "token_expired")
	ErrTokenRevoked     = apperror.New(apperror.KindUnauthorized, "token_revoked")
	ErrInvalidPrincipal = apperror.New(apperror.KindInvalidArgument, "invalid_principal")
	ErrNotConfigured    = apperror.New(apperror.KindInternal, "auth_not_configured")
)
