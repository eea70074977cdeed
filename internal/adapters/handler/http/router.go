package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type Handlers struct {
	Auth   *AuthHandler
	User   *UserHandler
	Debate *DebateHandler
}

func NewHandler(h Handlers, auth ports.AuthService) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(auth))

		r.Get("/users/me", h.User.GetMe)
		r.Delete("/users/me", h.User.DeleteMe)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", h.Debate.ListPolls)
			r.Post("/", h.Debate.CreatePoll)
			r.Post("/{id}/options", h.Debate.AddOption)
			r.Delete("/{id}/options/{optionID}", h.Debate.RemoveOption)
			r.Post("/{id}/votes", h.Debate.Vote)
			r.Get("/{id}/results", h.Debate.PollResults)
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", h.Debate.ListAnnouncements)
			r.Post("/", h.Debate.CreateAnnouncement)
		})

		r.Route("/debates/{id}", func(r chi.Router) {
			r.Get("/", h.Debate.GetDebate)
			r.Patch("/", h.Debate.UpdateDebate)
			r.Put("/state", h.Debate.ChangeState)
			r.Post("/attachments", h.Debate.AddAttachment)
			r.Delete("/attachments/{attachmentID}", h.Debate.RemoveAttachment)
		})
	})

	return r
}
