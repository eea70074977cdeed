package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "google-client")
	t.Setenv("APP_PORT", "")
	t.Setenv("DEBATE_STATE_POLICY", "")
	t.Setenv("REFRESH_TOKEN_STORE", "")
	t.Setenv("COOKIE_SAME_SITE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.RefreshTokenStore)
	assert.Equal(t, domain.PolicyNoRevertToDraft, cfg.StatePolicy)
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "google-client")
	t.Setenv("DEBATE_STATE_POLICY", "forward-only")
	t.Setenv("REFRESH_TOKEN_STORE", "Postgres")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_DB", "polls")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyForwardOnly, cfg.StatePolicy)
	assert.Equal(t, "postgres", cfg.RefreshTokenStore)
	assert.Equal(t, "postgres://u:p@db:5433/polls?sslmode=disable", cfg.PostgresDSN())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"policy":        {"DEBATE_STATE_POLICY": "sideways"},
		"store":         {"REFRESH_TOKEN_STORE": "redis"},
		"same site":     {"COOKIE_SAME_SITE": "sometimes"},
		"google client": {"GOOGLE_CLIENT_ID": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("GOOGLE_CLIENT_ID", "google-client")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
