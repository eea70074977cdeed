package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type RefreshTokenRepository struct {
	db *sql.DB
}

func NewRefreshTokenRepository(db *sql.DB) ports.RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Insert(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("refresh token %s already exists: %w", token.ID, err)
		}
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, created_at
		FROM refresh_tokens
		WHERE id = $1
	`
	token := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&token.ID, &token.UserID, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return token, nil
}

// Rotate rewrites the primary key in a single statement, so the old id
// stops resolving at the same instant the new one starts.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID, newID uuid.UUID, at time.Time) (*domain.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET id = $2, created_at = $3
		WHERE id = $1
		RETURNING id, user_id, created_at
	`
	token := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, oldID, newID, at).Scan(&token.ID, &token.UserID, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Wrap(domain.ErrRefreshTokenNotFound, "refresh token %s", oldID)
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return token, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
