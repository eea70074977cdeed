package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

type errorBody struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	if status == http.StatusInternalServerError {
		slogLogger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// mapError renders a domain error by its kind. Anything else is an
// internal error whose details are not exposed.
func mapError(err error) (int, errorBody) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
	}

	code := de.Code
	if code == "" {
		code = de.Kind.String()
	}
	body := errorBody{Code: code, Message: de.Error()}

	switch de.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest, body
	case domain.KindNotFound:
		return http.StatusNotFound, body
	case domain.KindConflict:
		return http.StatusConflict, body
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, body
	default:
		return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: msg})
}
