package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

const (
	ImplicitTokenTTL = 180 * 24 * time.Hour
	SessionTokenTTL  = 24 * time.Hour
)

// GrantStrategy exchanges a principal and a client for a token pair.
// Apply either returns a complete result or an error, never both.
type GrantStrategy interface {
	Type() domain.GrantType
	Apply(ctx context.Context) (*domain.GrantResult, error)
}

// ImplicitGrant issues a long-lived access token and no refresh token.
type ImplicitGrant struct {
	client *domain.ApiClient
	signer *Signer
	user   *domain.User
	state  string
}

func (g *ImplicitGrant) Type() domain.GrantType { return domain.GrantImplicit }

func (g *ImplicitGrant) Apply(ctx context.Context) (*domain.GrantResult, error) {
	accessToken, err := g.signer.Sign(AccessClaims{UserID: g.user.ID.String()}, g.client.Secret, ImplicitTokenTTL, g.client.ID)
	if err != nil {
		return nil, err
	}
	return bearer(accessToken, "", ImplicitTokenTTL, g.state), nil
}

// PasswordGrant is the resource-owner credentials grant: a short-lived
// access token plus a freshly persisted refresh token.
type PasswordGrant struct {
	client *domain.ApiClient
	signer *Signer
	tokens ports.RefreshTokenRepository
	clock  ports.Clock
	user   *domain.User
	state  string
}

func (g *PasswordGrant) Type() domain.GrantType { return domain.GrantPassword }

func (g *PasswordGrant) Apply(ctx context.Context) (*domain.GrantResult, error) {
	accessToken, err := g.signer.Sign(AccessClaims{UserID: g.user.ID.String()}, g.client.Secret, SessionTokenTTL, g.client.ID)
	if err != nil {
		return nil, err
	}

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    g.user.ID,
		CreatedAt: g.clock.Now(),
	}
	if err := g.tokens.Insert(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return bearer(accessToken, refreshToken.ID.String(), SessionTokenTTL, g.state), nil
}

// RefreshTokenGrant consumes a refresh token and issues a new pair for the
// user it was bound to.
type RefreshTokenGrant struct {
	client         *domain.ApiClient
	signer         *Signer
	tokens         ports.RefreshTokenRepository
	clock          ports.Clock
	refreshTokenID uuid.UUID
	state          string
}

func (g *RefreshTokenGrant) Type() domain.GrantType { return domain.GrantRefreshToken }

func (g *RefreshTokenGrant) Apply(ctx context.Context) (*domain.GrantResult, error) {
	rotated, err := g.tokens.Rotate(ctx, g.refreshTokenID, uuid.New(), g.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token %s: %w", g.refreshTokenID, err)
	}

	accessToken, err := g.signer.Sign(AccessClaims{UserID: rotated.UserID.String()}, g.client.Secret, SessionTokenTTL, g.client.ID)
	if err != nil {
		return nil, err
	}

	return bearer(accessToken, rotated.ID.String(), SessionTokenTTL, g.state), nil
}

func bearer(accessToken, refreshToken string, ttl time.Duration, state string) *domain.GrantResult {
	return &domain.GrantResult{
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    int64(ttl / time.Second),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		State:        state,
	}
}
