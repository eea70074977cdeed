package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

// ClientDirectory resolves registered API clients. Lookup returns nil, nil
// when no client has the id.
type ClientDirectory interface {
	Lookup(ctx context.Context, clientID string) (*domain.ApiClient, error)
}

type RefreshTokenRepository interface {
	Insert(ctx context.Context, token *domain.RefreshToken) error
	// GetByID returns nil, nil when the token does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error)
	// Rotate atomically replaces the token identified by oldID with newID,
	// keeping its user. It fails with domain.ErrRefreshTokenNotFound when
	// oldID does not exist or was already rotated.
	Rotate(ctx context.Context, oldID, newID uuid.UUID, at time.Time) (*domain.RefreshToken, error)
}

type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Session is what a verified bearer token proves about its caller.
type Session struct {
	UserID    uuid.UUID
	ClientID  string
	ExpiresAt time.Time
}

type AuthService interface {
	StartSession(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error)
	VerifyAccessToken(ctx context.Context, token string) (*Session, error)
}
