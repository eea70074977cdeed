package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

type Config struct {
	Port string

	MongoURI      string
	MongoDatabase string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	// APIClients is the static client directory as id:secret pairs. When
	// empty, clients are read from the api_clients table.
	APIClients string
	// RefreshTokenStore is "mongo" or "postgres".
	RefreshTokenStore string

	GoogleClientID string
	CookieDomain   string
	CookieSameSite http.SameSite

	StatePolicy domain.TransitionPolicy
}

// Load reads the environment, after applying an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              getEnv("APP_PORT", "8080"),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "epoll"),
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:        getEnv("POSTGRES_DB", "epoll"),
		APIClients:        os.Getenv("API_CLIENTS"),
		RefreshTokenStore: strings.ToLower(getEnv("REFRESH_TOKEN_STORE", "mongo")),
		GoogleClientID:    os.Getenv("GOOGLE_CLIENT_ID"),
		CookieDomain:      os.Getenv("COOKIE_DOMAIN"),
	}

	sameSite, err := parseSameSite(getEnv("COOKIE_SAME_SITE", "lax"))
	if err != nil {
		return Config{}, err
	}
	cfg.CookieSameSite = sameSite

	policy, err := domain.ParseTransitionPolicy(os.Getenv("DEBATE_STATE_POLICY"))
	if err != nil {
		return Config{}, fmt.Errorf("DEBATE_STATE_POLICY: %w", err)
	}
	cfg.StatePolicy = policy

	if cfg.RefreshTokenStore != "mongo" && cfg.RefreshTokenStore != "postgres" {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_STORE: unknown store %q", cfg.RefreshTokenStore)
	}
	if cfg.GoogleClientID == "" {
		return Config{}, fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("COOKIE_SAME_SITE: unknown mode %q", v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
