package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"mucajeyadmin/auth"
	"mucajeyadmin/models"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Type     any    `json:"type"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type usersResponse struct {
	Users []models.Profile `json:"users"`
}

// both fields share one message on create
var createFieldKeys = map[string]string{
	"username": "UsernamePasswordRequired",
	"password": "UsernamePasswordRequired",
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.gateway.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.gateway.CreateUser(r.Context(), req.Username, req.Password, models.ParseRole(req.Type))
	if err != nil {
		h.handleGatewayError(w, r, err, createFieldKeys)
		return
	}
	writeJSON(w, http.StatusCreated, user.Summary())
}

// ChangeOwnPassword rotates the session user's password.
func (h *Handler) ChangeOwnPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor, _ := auth.UserFromContext(r.Context())
	user, err := h.gateway.ChangeOwnPassword(r.Context(), actor, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.handleGatewayError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.gateway.ResetPassword(r.Context(), usernameParam(r), req.Password)
	if err != nil {
		h.handleGatewayError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	if err := h.gateway.DeleteUser(r.Context(), actor, usernameParam(r)); err != nil {
		h.handleGatewayError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// usernameParam returns the decoded {username}. chi matches on RawPath when
// the request carried escapes that Path cannot represent (such as %2F), and
// on the already decoded Path otherwise.
func usernameParam(r *http.Request) string {
	raw := chi.URLParam(r, "username")
	if r.URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
