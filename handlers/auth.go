package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mucajeyadmin/auth"
	"mucajeyadmin/models"
)

type loginRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	CaptchaID       string `json:"captchaId"`
	CaptchaSolution string `json:"captchaSolution"`
}

type userResponse struct {
	User models.Profile `json:"user"`
}

// Login checks the credentials, provisions the API key if the user has none
// and starts the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if !h.limiter.Allow(ip) {
		h.logger.WarnContext(r.Context(), "login blocked", slog.String("ip", ip))
		writeError(w, r, http.StatusTooManyRequests, "TooManyAttempts")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusUnauthorized, "MissingCredentials")
		return
	}

	if h.captchaRequired(ip) && !verifyCaptcha(req.CaptchaID, req.CaptchaSolution) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:           localize(r, "CaptchaRequired"),
			CaptchaRequired: true,
		})
		return
	}

	user, err := h.gateway.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.limiter.RecordFailure(ip)
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:           localize(r, "InvalidCredentials"),
			CaptchaRequired: h.captchaRequired(ip),
		})
		return
	}
	if err != nil {
		h.handleGatewayError(w, r, err, nil)
		return
	}

	h.limiter.Reset(ip)
	if err := h.sessions.SetUser(w, r, user.Username); err != nil {
		h.internalError(w, r, "save session", err)
		return
	}
	h.logger.InfoContext(r.Context(), "login", slog.String("username", user.Username), slog.String("ip", ip))
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *Handler) captchaRequired(ip string) bool {
	return h.opts.CaptchaAfter > 0 && h.limiter.Failures(ip) >= h.opts.CaptchaAfter
}

// Logout always succeeds, with or without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.internalError(w, r, "clear session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, userResponse{User: user})
}
