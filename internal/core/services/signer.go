package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

// AccessClaims is the payload of a bearer token: the issuing client as
// subject, the user as _id and an always-present scope object.
type AccessClaims struct {
	UserID string         `json:"_id"`
	Scope  map[string]any `json:"scope"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 bearer tokens. It holds no keys: every
// call is given the secret of the client the token belongs to.
type Signer struct {
	clock ports.Clock
}

func NewSigner(clock ports.Clock) *Signer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Signer{clock: clock}
}

func (s *Signer) Sign(claims AccessClaims, secret string, ttl time.Duration, subject string) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}

	now := s.clock.Now()
	claims.Subject = subject
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.Scope == nil {
		claims.Scope = map[string]any{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *Signer) Verify(tokenStr, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidToken, "%v", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, domain.Wrap(domain.ErrInvalidToken, "token carries no user")
	}
	return claims, nil
}

// Subject reads the sub claim without verifying the signature, so the
// issuing client can be looked up before Verify.
func (s *Signer) Subject(tokenStr string) (string, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", domain.Wrap(domain.ErrInvalidToken, "%v", err)
	}
	if claims.Subject == "" {
		return "", domain.Wrap(domain.ErrInvalidToken, "token has no subject")
	}
	return claims.Subject, nil
}
