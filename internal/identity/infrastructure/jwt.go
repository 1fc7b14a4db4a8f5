package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mateusmacedo/go-busbooking/internal/identity/domain"
)

type sessionClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Type    string `json:"type"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	jwt.RegisteredClaims
}

type jwtTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokenIssuer assina sessões HS256 com o segredo compartilhado.
func NewJWTTokenIssuer(secret string, ttl time.Duration) (domain.TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &jwtTokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *jwtTokenIssuer) Issue(identity domain.Identity) (domain.Session, error) {
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Name:    identity.Name,
		Email:   identity.Email,
		Type:    string(identity.Type),
		Phone:   identity.Phone,
		Address: identity.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign session: %w", err)
	}
	return domain.Session{Token: signed, ExpiresAt: expiresAt, Identity: identity}, nil
}

func (i *jwtTokenIssuer) Parse(raw string) (domain.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token without subject", domain.ErrUnauthenticated)
	}

	return domain.Identity{
		UserID:  claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Type:    domain.UserType(claims.Type),
		Phone:   claims.Phone,
		Address: claims.Address,
	}, nil
}
