package handlers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"
)

// CSRFHeader is where clients echo the token from /auth/csrf.
const CSRFHeader = "X-CSRF-Token"

type csrfResponse struct {
	Token string `json:"token"`
}

func csrfProtect(key []byte, secure bool, allowedOrigins []string) func(http.Handler) http.Handler {
	var trusted []string
	for _, o := range allowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			trusted = append(trusted, u.Host)
		}
	}

	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.TrustedOrigins(trusted),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusForbidden, "CSRFInvalid")
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		// Without TLS the origin check must not insist on an https Referer.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, csrfResponse{Token: csrf.Token(r)})
}
