package http

import (
	"encoding/json"
	"net/http"

	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	refreshCookieTTL   = 7 * 24 * 60 * 60
)

type AuthHandler struct {
	userService    ports.UserService
	cookieDomain   string
	cookieSameSite http.SameSite
}

func NewAuthHandler(userService ports.UserService, cookieDomain string, cookieSameSite http.SameSite) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		cookieDomain:   cookieDomain,
		cookieSameSite: cookieSameSite,
	}
}

type loginRequest struct {
	GrantType    string `json:"grantType"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	State        string `json:"state"`
	IDToken      string `json:"idToken"`
}

type refreshRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RefreshToken string `json:"refreshToken"`
	State        string `json:"state"`
}

// Login exchanges a Google ID token for an access token. The grant type
// defaults to implicit.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.GrantType == "" {
		req.GrantType = string(domain.GrantImplicit)
	}

	resp, err := h.userService.Login(r.Context(), ports.LoginInput{
		GrantType:    domain.GrantType(req.GrantType),
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		State:        req.State,
		IDToken:      req.IDToken,
	})
	if err != nil {
		errorResponse(w, r, err)
		return
	}

	h.setSessionCookies(w, &resp.GrantResult)
	writeJSON(w, http.StatusOK, resp)
}

// Refresh rotates the refresh token given in the body or, when absent
// there, in the refresh_token cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}

	resp, err := h.userService.RefreshAccessToken(r.Context(), ports.RefreshInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RefreshToken: req.RefreshToken,
		State:        req.State,
	})
	if err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			h.expireCookies(w)
		}
		errorResponse(w, r, err)
		return
	}

	h.setSessionCookies(w, &resp.GrantResult)
	writeJSON(w, http.StatusOK, resp)
}

// Logout only clears the session cookies. Issued tokens stay valid until
// they expire or are rotated.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.expireCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, result *domain.GrantResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    result.AccessToken,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   true,
		SameSite: h.cookieSameSite,
		MaxAge:   int(result.ExpiresIn),
	})
	if result.RefreshToken == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    result.RefreshToken,
		Path:     "/auth",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   true,
		SameSite: h.cookieSameSite,
		MaxAge:   refreshCookieTTL,
	})
}

func (h *AuthHandler) expireCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/", Domain: h.cookieDomain})
	http.SetCookie(w, &http.Cookie{Name: refreshTokenCookie, MaxAge: -1, Path: "/auth", Domain: h.cookieDomain})
}
