package google

import (
	"context"
	"strings"

	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
	"google.golang.org/api/idtoken"
)

type GoogleVerifier struct{}

func NewVerifier() ports.TokenVerifier {
	return &GoogleVerifier{}
}

// Verify validates a Google ID token for clientID. Any rejection is
// reported as domain.ErrInvalidToken.
func (v *GoogleVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	payload, err := idtoken.Validate(ctx, token, clientID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidToken, "google id token: %v", err)
	}
	return payloadFromClaims(payload.Claims)
}

func payloadFromClaims(claims map[string]any) (*ports.TokenPayload, error) {
	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return nil, domain.Wrap(domain.ErrInvalidToken, "email not found in claims")
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return nil, domain.Wrap(domain.ErrInvalidToken, "email %s is not verified", email)
	}
	name, _ := claims["name"].(string)
	return &ports.TokenPayload{Email: email, Name: name}, nil
}
