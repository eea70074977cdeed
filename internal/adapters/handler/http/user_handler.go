package http

import (
	"net/http"

	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "missing user context"})
		return
	}

	user, err := h.service.GetByID(r.Context(), userID.String())
	if err != nil {
		errorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "missing user context"})
		return
	}

	if err := h.service.Remove(r.Context(), userID.String()); err != nil {
		errorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
