package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type LoginInput struct {
	GrantType    domain.GrantType
	ClientID     string
	ClientSecret string
	State        string
	IDToken      string
}

type AuthenticateInput struct {
	GrantType    domain.GrantType
	ClientID     string
	ClientSecret string
	State        string
	ExtraPayload string
}

type RefreshInput struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	State        string
}

type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginResponse struct {
	domain.GrantResult
	Timestamp int64    `json:"timestamp"`
	User      UserView `json:"user"`
}

type UserService interface {
	Login(ctx context.Context, input LoginInput) (*LoginResponse, error)
	Authenticate(ctx context.Context, input AuthenticateInput, user *domain.User) (*LoginResponse, error)
	RefreshAccessToken(ctx context.Context, input RefreshInput) (*LoginResponse, error)
	GetByID(ctx context.Context, id string) (*UserView, error)
	Remove(ctx context.Context, id string) error
}
