package identity

import (
	"errors"
	"time"

	"github.com/glowface/pointgate/internal/clock"
	"github.com/glowface/pointgate/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

var ErrInvalidToken = errors.New("invalid_token")

// Issuer mints and verifies the bearer tokens handed out on activation.
// Tokens are signed HS256 and carry the device id as subject.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

type IssuerParam struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
}

func NewIssuer(p IssuerParam) *Issuer {
	return &Issuer{
		secret: []byte(p.Config.AuthJWTSecret),
		ttl:    p.Config.AuthTokenTTL,
		clock:  p.Clock,
	}
}

func (i *Issuer) Issue(deviceID string) (string, error) {
	now := i.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify returns the device id carried by a token, or ErrInvalidToken.
func (i *Issuer) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

var Module = fx.Module("identity",
	fx.Provide(NewIssuer),
)
