package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type UserService struct {
	repo           ports.UserRepository
	tokens         ports.RefreshTokenRepository
	auth           ports.AuthService
	verifier       ports.TokenVerifier
	clock          ports.Clock
	googleClientID string
	logger         *slog.Logger
}

func NewUserService(repo ports.UserRepository, tokens ports.RefreshTokenRepository, auth ports.AuthService, verifier ports.TokenVerifier, clock ports.Clock, googleClientID string, logger *slog.Logger) ports.UserService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:           repo,
		tokens:         tokens,
		auth:           auth,
		verifier:       verifier,
		clock:          clock,
		googleClientID: googleClientID,
		logger:         logger,
	}
}

// Login verifies a Google ID token, registers the user on first sight and
// starts a session with the requested grant.
func (s *UserService) Login(ctx context.Context, input ports.LoginInput) (*ports.LoginResponse, error) {
	if input.IDToken == "" {
		return nil, domain.Wrap(domain.ErrValidation, "id token is required")
	}

	payload, err := s.verifier.Verify(ctx, input.IDToken, s.googleClientID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidToken, "invalid google token: %v", err)
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		user = &domain.User{
			Email: email,
			Name:  normalizeName(payload.Name),
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	}

	return s.Authenticate(ctx, ports.AuthenticateInput{
		GrantType:    input.GrantType,
		ClientID:     input.ClientID,
		ClientSecret: input.ClientSecret,
		State:        input.State,
	}, user)
}

func (s *UserService) Authenticate(ctx context.Context, input ports.AuthenticateInput, user *domain.User) (*ports.LoginResponse, error) {
	result, err := s.auth.StartSession(ctx, domain.GrantRequest{
		GrantType:    input.GrantType,
		ClientID:     input.ClientID,
		ClientSecret: input.ClientSecret,
		State:        input.State,
		Principal:    user,
		ExtraPayload: input.ExtraPayload,
	})
	if err != nil {
		return nil, err
	}

	return &ports.LoginResponse{
		GrantResult: *result,
		Timestamp:   s.clock.Now().UnixMilli(),
		User:        toUserView(user),
	}, nil
}

func (s *UserService) RefreshAccessToken(ctx context.Context, input ports.RefreshInput) (*ports.LoginResponse, error) {
	tokenID, err := parseID(input.RefreshToken, "refresh token")
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if token == nil {
		return nil, domain.Wrap(domain.ErrRefreshTokenNotFound, "refresh token %s", tokenID)
	}

	user, err := s.repo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.Wrap(domain.ErrUserNotFound, "user %s", token.UserID)
	}

	return s.Authenticate(ctx, ports.AuthenticateInput{
		GrantType:    domain.GrantRefreshToken,
		ClientID:     input.ClientID,
		ClientSecret: input.ClientSecret,
		State:        input.State,
		ExtraPayload: input.RefreshToken,
	}, user)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*ports.UserView, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.Wrap(domain.ErrUserNotFound, "user %s", userID)
	}

	view := toUserView(user)
	return &view, nil
}

func (s *UserService) Remove(ctx context.Context, id string) error {
	userID, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user removed", "user_id", userID)
	return nil
}

// normalizeName capitalizes every part of a full name.
func normalizeName(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		parts[i] = domain.Capitalize(p)
	}
	return strings.Join(parts, " ")
}

func toUserView(u *domain.User) ports.UserView {
	view := ports.UserView{Email: u.Email, Name: u.Name}
	if u.ID != uuid.Nil {
		view.ID = u.ID.String()
	}
	return view
}
