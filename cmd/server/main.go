package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/epoll/internal/adapters/directory"
	"github.com/vncsmyrnk/epoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/epoll/internal/adapters/metrics"
	"github.com/vncsmyrnk/epoll/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/epoll/internal/adapters/repository/mongo"
	"github.com/vncsmyrnk/epoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/epoll/internal/config"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
	"github.com/vncsmyrnk/epoll/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	mongoClient, err := mongo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	mongoDB := mongoClient.Database(cfg.MongoDatabase)
	if err := mongo.EnsureIndexes(ctx, mongoDB); err != nil {
		return err
	}

	var clients ports.ClientDirectory
	if cfg.APIClients != "" {
		static, err := directory.Parse(cfg.APIClients)
		if err != nil {
			return err
		}
		logger.Info("using static api client directory", "clients", static.Len())
		clients = static
	} else {
		clients = postgres.NewClientDirectory(db)
	}

	var refreshTokens ports.RefreshTokenRepository
	switch cfg.RefreshTokenStore {
	case "postgres":
		refreshTokens = postgres.NewRefreshTokenRepository(db)
	default:
		refreshTokens = mongo.NewRefreshTokenRepository(mongoDB)
	}

	recorder := metrics.NewRecorder()
	clock := ports.SystemClock{}

	authenticator := services.NewAuthenticator(clients, refreshTokens, services.NewSigner(clock), clock, recorder, logger)
	userService := services.NewUserService(postgres.NewUserRepository(db), refreshTokens, authenticator, google.NewVerifier(), clock, cfg.GoogleClientID, logger)
	debateService := services.NewDebateService(mongo.NewDebateRepository(mongoDB), clock, cfg.StatePolicy, recorder, logger)

	http.SetLogger(logger)
	handler := http.NewHandler(http.Handlers{
		Auth:   http.NewAuthHandler(userService, cfg.CookieDomain, cfg.CookieSameSite),
		User:   http.NewUserHandler(userService),
		Debate: http.NewDebateHandler(debateService),
	}, authenticator)

	server := &stdhttp.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
