package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"mucajeyadmin/auth"
	"mucajeyadmin/i18n"
	"mucajeyadmin/registration"
)

type errorResponse struct {
	Error           string `json:"error"`
	CaptchaRequired bool   `json:"captchaRequired,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": "..."} with the message for key in the
// caller's language.
func writeError(w http.ResponseWriter, r *http.Request, status int, key string) {
	writeJSON(w, status, errorResponse{Error: localize(r, key)})
}

func localize(r *http.Request, key string) string {
	return i18n.T(i18n.DetectLanguage(r), key)
}

// decodeJSON reads an optional JSON object body into v. An empty body leaves
// v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "RequestTooLarge")
		return false
	}
	writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
	return false
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		slog.String("request_id", getRequestID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeError(w, r, http.StatusInternalServerError, "InternalServerError")
}

var validationKeys = map[string]string{
	"username":        "UsernamePasswordRequired",
	"password":        "PasswordRequired",
	"newPassword":     "NewPasswordRequired",
	"currentPassword": "CurrentPasswordRequired",
}

// handleGatewayError maps gateway errors onto status codes. fieldKeys
// overrides the message used for a validation failure on a given field.
func (h *Handler) handleGatewayError(w http.ResponseWriter, r *http.Request, err error, fieldKeys map[string]string) {
	var ve *auth.ValidationError
	var ue *auth.UpstreamError
	switch {
	case errors.As(err, &ve):
		key, ok := fieldKeys[ve.Field]
		if !ok {
			key = validationKeys[ve.Field]
		}
		if key == "" {
			key = "InvalidRequestBody"
		}
		writeError(w, r, http.StatusBadRequest, key)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "InvalidCredentials")
	case errors.Is(err, auth.ErrCurrentPasswordInvalid):
		writeError(w, r, http.StatusUnauthorized, "CurrentPasswordInvalid")
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, r, http.StatusConflict, "UserAlreadyExists")
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, "UserNotFound")
	case errors.Is(err, auth.ErrSelfDelete):
		writeError(w, r, http.StatusBadRequest, "CannotDeleteSelf")
	case errors.As(err, &ue):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: i18n.Tf(i18n.DetectLanguage(r), "RegistrationFailed", upstreamDetail(ue.Err)),
		})
	default:
		h.internalError(w, r, "request failed", err)
	}
}

func upstreamDetail(err error) string {
	var re *registration.Error
	if errors.As(err, &re) {
		return re.Detail
	}
	return err.Error()
}
