package infrastructure

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
)

func TestJWTTokenIssuerRoundTrip(t *testing.T) {
	issuer, err := NewJWTTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	identity := domain.Identity{UserID: "u1", Name: "Siti", Email: "siti@example.com", Type: domain.Admin}
	session, err := issuer.Issue(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	parsed, err := issuer.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, identity, parsed)
}

func TestJWTTokenIssuerRejectsInvalidTokens(t *testing.T) {
	_, err := NewJWTTokenIssuer("", time.Hour)
	require.Error(t, err)

	issuer, err := NewJWTTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewJWTTokenIssuer("another-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	expiring := issuer.(*jwtTokenIssuer)
	expiring.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiring.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)
	expiring.now = time.Now

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign.Token,
		"expired":      expired.Token,
		"alg none":     none,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Parse(token)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}
