package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

// Static is a read-only client directory loaded once from configuration.
type Static struct {
	clients map[string]domain.ApiClient
}

// Parse reads a comma separated list of id:secret pairs, e.g.
// "web:s3cret,mobile:0ther". Blank entries are skipped.
func Parse(raw string) (*Static, error) {
	d := &Static{clients: make(map[string]domain.ApiClient)}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, secret, ok := strings.Cut(entry, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid api client entry %q", entry)
		}
		if _, dup := d.clients[id]; dup {
			return nil, fmt.Errorf("duplicate api client %q", id)
		}
		d.clients[id] = domain.ApiClient{ID: id, Secret: secret}
	}
	return d, nil
}

func NewStatic(clients ...domain.ApiClient) ports.ClientDirectory {
	d := &Static{clients: make(map[string]domain.ApiClient, len(clients))}
	for _, c := range clients {
		d.clients[c.ID] = c
	}
	return d
}

func (d *Static) Len() int { return len(d.clients) }

func (d *Static) Lookup(_ context.Context, clientID string) (*domain.ApiClient, error) {
	c, ok := d.clients[clientID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
