package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type DebateHandler struct {
	service ports.DebateService
}

func NewDebateHandler(service ports.DebateService) *DebateHandler {
	return &DebateHandler{
		service: service,
	}
}

type createDebateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type updateDebateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type changeStateRequest struct {
	State string `json:"state"`
}

type addOptionRequest struct {
	Reason string `json:"reason"`
}

type voteRequest struct {
	OptionID string `json:"optionId"`
}

type attachmentRequest struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Extension    string `json:"extension"`
	MimeType     string `json:"mimeType"`
	InternalPath string `json:"internalPath"`
	DownloadPath string `json:"downloadPath"`
	OriginalName string `json:"originalName"`
}

func (h *DebateHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.service.CreatePoll)
}

func (h *DebateHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.service.CreateAnnouncement)
}

type createFunc func(ctx context.Context, input ports.CreateDebateInput) (*ports.DebateView, error)

func (h *DebateHandler) create(w http.ResponseWriter, r *http.Request, fn createFunc) {
	var req createDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	input := ports.CreateDebateInput{Title: req.Title, Content: req.Content}
	if userID, ok := userIDFromCtx(r); ok {
		input.CreatedBy = userID.String()
	}

	view, err := fn(r.Context(), input)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *DebateHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListPolls)
}

func (h *DebateHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAnnouncements)
}

type listFunc func(ctx context.Context, input ports.ListDebatesInput) ([]ports.DebateListItem, error)

func (h *DebateHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	q := r.URL.Query()
	input := ports.ListDebatesInput{
		MinState: q.Get("minState"),
		MaxState: q.Get("maxState"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "invalid limit")
			return
		}
		input.Limit = limit
	}

	items, err := fn(r.Context(), input)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *DebateHandler) GetDebate(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDebate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DebateHandler) UpdateDebate(w http.ResponseWriter, r *http.Request) {
	var req updateDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	view, err := h.service.UpdateDebate(r.Context(), chi.URLParam(r, "id"), ports.UpdateDebateInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DebateHandler) ChangeState(w http.ResponseWriter, r *http.Request) {
	var req changeStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	view, err := h.service.ChangeState(r.Context(), chi.URLParam(r, "id"), req.State)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DebateHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	var req addOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	view, err := h.service.AddOption(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *DebateHandler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveOption(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "optionID"))
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DebateHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	var req attachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	view, err := h.service.AddAttachment(r.Context(), chi.URLParam(r, "id"), domain.File{
		Name:         req.Name,
		Size:         req.Size,
		Extension:    req.Extension,
		MimeType:     req.MimeType,
		InternalPath: req.InternalPath,
		DownloadPath: req.DownloadPath,
		OriginalName: req.OriginalName,
	})
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *DebateHandler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveAttachment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Vote casts the authenticated user's vote.
func (h *DebateHandler) Vote(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "missing user context"})
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	view, err := h.service.Vote(r.Context(), ports.VoteInput{
		PollID:   chi.URLParam(r, "id"),
		UserID:   userID.String(),
		OptionID: req.OptionID,
	})
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *DebateHandler) PollResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.PollResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
