package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

// Authenticator is the single entry point for token issuance.
type Authenticator struct {
	clients ports.ClientDirectory
	tokens  ports.RefreshTokenRepository
	signer  *Signer
	clock   ports.Clock
	metrics ports.Metrics
	logger  *slog.Logger
}

func NewAuthenticator(clients ports.ClientDirectory, tokens ports.RefreshTokenRepository, signer *Signer, clock ports.Clock, metrics ports.Metrics, logger *slog.Logger) *Authenticator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		clients: clients,
		tokens:  tokens,
		signer:  signer,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

func (a *Authenticator) StartSession(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error) {
	grant, err := a.grant(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := grant.Apply(ctx)
	if err != nil {
		return nil, err
	}

	a.metrics.GrantIssued(grant.Type())
	a.logger.InfoContext(ctx, "session started", "grant_type", grant.Type(), "client_id", req.ClientID)
	return result, nil
}

// VerifyAccessToken checks a bearer token against the secret of the client
// named in its subject.
func (a *Authenticator) VerifyAccessToken(ctx context.Context, token string) (*ports.Session, error) {
	clientID, err := a.signer.Subject(token)
	if err != nil {
		return nil, err
	}

	client, err := a.clients.Lookup(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}
	if client == nil {
		return nil, domain.Wrap(domain.ErrInvalidToken, "unknown client %q", clientID)
	}

	claims, err := a.signer.Verify(token, client.Secret)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidToken, "user %q", claims.UserID)
	}

	return &ports.Session{
		UserID:    userID,
		ClientID:  client.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (a *Authenticator) grant(ctx context.Context, req domain.GrantRequest) (GrantStrategy, error) {
	client, err := a.clients.Lookup(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}
	if client == nil {
		return nil, domain.Wrap(domain.ErrClientNotFound, "client %q", req.ClientID)
	}

	switch req.GrantType {
	case domain.GrantImplicit:
		if req.Principal == nil {
			return nil, domain.Wrap(domain.ErrValidation, "implicit grant requires a principal")
		}
		return &ImplicitGrant{
			client: client,
			signer: a.signer,
			user:   req.Principal,
			state:  req.State,
		}, nil

	case domain.GrantPassword:
		if err := checkClientSecret(client, req.ClientSecret); err != nil {
			return nil, err
		}
		if req.Principal == nil {
			return nil, domain.Wrap(domain.ErrValidation, "password grant requires a principal")
		}
		return &PasswordGrant{
			client: client,
			signer: a.signer,
			tokens: a.tokens,
			clock:  a.clock,
			user:   req.Principal,
			state:  req.State,
		}, nil

	case domain.GrantRefreshToken:
		if err := checkClientSecret(client, req.ClientSecret); err != nil {
			return nil, err
		}
		tokenID, err := uuid.Parse(req.ExtraPayload)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInvalidID, "refresh token %q", req.ExtraPayload)
		}
		return &RefreshTokenGrant{
			client:         client,
			signer:         a.signer,
			tokens:         a.tokens,
			clock:          a.clock,
			refreshTokenID: tokenID,
			state:          req.State,
		}, nil
	}

	return nil, domain.Wrap(domain.ErrUnknownGrantType, "grant type %q", req.GrantType)
}

func checkClientSecret(client *domain.ApiClient, supplied string) error {
	if supplied == "" {
		return domain.Wrap(domain.ErrClientSecretMissing, "client %q", client.ID)
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(client.Secret)) != 1 {
		return domain.Wrap(domain.ErrClientSecretInvalid, "client %q", client.ID)
	}
	return nil
}
