package domain

import (
	"time"

	"github.com/google/uuid"
)

type GrantType string

const (
	GrantImplicit     GrantType = "implicit"
	GrantPassword     GrantType = "password"
	GrantRefreshToken GrantType = "refresh_token"
)

const TokenTypeBearer = "Bearer"

// ApiClient is registered out-of-band and never mutated by this service.
type ApiClient struct {
	ID     string `json:"id"`
	Secret string `json:"-"`
}

type GrantRequest struct {
	GrantType    GrantType
	ClientID     string
	ClientSecret string
	State        string
	// Principal is the authenticated user. It is ignored by the refresh
	// grant, which takes the user from the stored token.
	Principal *User
	// ExtraPayload carries the refresh token id for the refresh grant.
	ExtraPayload string
}

type GrantResult struct {
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	State        string `json:"state"`
}

// RefreshToken is single-use: it lives until the refresh grant rotates it.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
