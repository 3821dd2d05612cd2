package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/storeline/internal/auth/domain"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/config"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		Cfg:         config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: "storeline"},
		Log:         zap.NewNop(),
		Clock:       clk,
		Revocations: NewMemoryRevocationStore(clk),
	})
	return svc, clk
}

func TestIssueAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, p := range []principal.Principal{principal.Customer(11), principal.Staff(12), principal.Manager(13)} {
		issued, err := svc.Issue(ctx, domain.IssueRequest{Principal: p})
		require.NoError(t, err)
		assert.NotEmpty(t, issued.TokenID)

		got, err := svc.Authenticate(ctx, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, domain.IssueRequest{Principal: principal.Staff(5), TTL: time.Hour})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = svc.Authenticate(ctx, issued.Token+"x")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, domain.Claims{
		Role: "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			Issuer:    "storeline",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	forged, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	clk.Advance(2 * time.Hour)
	_, err = svc.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestUnknownRoleIsRejected(t *testing.T) {
	svc, clk := newTestService(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, domain.Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			Issuer:    "storeline",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, domain.IssueRequest{Principal: principal.Customer(7), TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, issued.Token))

	_, err = svc.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	fresh, err := svc.Issue(ctx, domain.IssueRequest{Principal: principal.Customer(7), TTL: 3 * time.Hour})
	require.NoError(t, err)
	clk.Advance(90 * time.Minute)
	_, err = svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestIssueRequiresPrincipal(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Issue(context.Background(), domain.IssueRequest{Principal: principal.Anonymous()})
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)
}
