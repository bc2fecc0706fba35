package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/http/middleware"
	"github.com/wildtrek/tours/internal/http/response"
	"github.com/wildtrek/tours/internal/service"
)

// AuthHandler exposes the credential flows: signup, login, logout and the two
// password-change paths.
type AuthHandler struct {
	auth      *service.Auth
	publicURL string
	secure    bool
}

func NewAuthHandler(auth *service.Auth, publicURL string, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, publicURL: publicURL, secure: secure}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decodeBody(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, signed, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, signed, h.auth.TokenTTL(), h.secure)
	response.SuccessToken(w, http.StatusCreated, signed, map[string]any{"user": user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, signed, err := h.auth.Login(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, signed, h.auth.TokenTTL(), h.secure)
	response.SuccessToken(w, http.StatusOK, signed, map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.secure)
	response.SuccessMessage(w, http.StatusOK, "logged out")
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email, h.publicURL); err != nil {
		response.Error(w, r, err)
		return
	}
	response.SuccessMessage(w, http.StatusOK, "token sent to email")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, signed, err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, signed, h.auth.TokenTTL(), h.secure)
	response.SuccessToken(w, http.StatusOK, signed, map[string]any{"user": user})
}

// UpdateMyPassword runs behind RequireAuth.
func (h *AuthHandler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user := middleware.CurrentUser(r.Context())
	signed, err := h.auth.UpdatePassword(r.Context(), user, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, signed, h.auth.TokenTTL(), h.secure)
	response.SuccessToken(w, http.StatusOK, signed, map[string]any{"user": user})
}
