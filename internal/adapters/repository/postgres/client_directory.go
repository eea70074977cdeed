package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

// ClientDirectory reads API clients provisioned out-of-band into the
// api_clients table.
type ClientDirectory struct {
	db *sql.DB
}

func NewClientDirectory(db *sql.DB) ports.ClientDirectory {
	return &ClientDirectory{db: db}
}

func (d *ClientDirectory) Lookup(ctx context.Context, clientID string) (*domain.ApiClient, error) {
	query := `SELECT id, secret FROM api_clients WHERE id = $1 AND disabled_at IS NULL`
	client := &domain.ApiClient{}
	err := d.db.QueryRowContext(ctx, query, clientID).Scan(&client.ID, &client.Secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}
	return client, nil
}
