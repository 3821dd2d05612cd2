package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/storeline/internal/auth/domain"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/config"
	"github.com/smallbiznis/storeline/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTokenTTL = 12 * time.Hour

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	Revocations domain.RevocationStore
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	secret      []byte
	issuer      string
	revocations domain.RevocationStore
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("auth.service"),
		clock:       p.Clock,
		secret:      []byte(p.Cfg.AuthJWTSecret),
		issuer:      strings.TrimSpace(p.Cfg.AuthJWTIssuer),
		revocations: p.Revocations,
	}
}

func (s *Service) Authenticate(ctx context.Context, raw string) (principal.Principal, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return principal.Anonymous(), err
	}

	if claims.ID != "" && s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return principal.Anonymous(), err
		}
		if revoked {
			return principal.Anonymous(), domain.ErrTokenRevoked
		}
	}

	id, err := snowflake.ParseString(claims.Subject)
	if err != nil || id == 0 {
		return principal.Anonymous(), domain.ErrInvalidToken
	}
	p := principal.Parse(claims.Role, id)
	if p.IsAnonymous() {
		return principal.Anonymous(), domain.ErrInvalidToken
	}
	return p, nil
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (domain.IssuedToken, error) {
	if len(s.secret) == 0 {
		return domain.IssuedToken{}, domain.ErrNotConfigured
	}
	if req.Principal.IsAnonymous() {
		return domain.IssuedToken{}, domain.ErrInvalidPrincipal
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := s.clock.Now()
	expiresAt := now.Add(ttl)
	tokenID := uuid.NewString()
	claims := domain.Claims{
		Role: string(req.Principal.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   req.Principal.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Revoke blocks the token until its own expiry.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.parse(raw)
	if err != nil {
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil || s.revocations == nil {
		return domain.ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Time.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	s.log.Info("token revoked", zap.String("token_id", claims.ID), zap.String("subject", claims.Subject))
	return nil
}

func (s *Service) parse(raw string) (*domain.Claims, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrNotConfigured
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &domain.Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
