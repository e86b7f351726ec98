// Package handlers exposes the gateway over HTTP.
package handlers

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"mucajeyadmin/auth"
	"mucajeyadmin/store"
)

type Options struct {
	Gateway  *auth.Gateway
	Sessions *auth.Sessions
	// Store is pinged by /readyz.
	Store  store.Store
	Logger *slog.Logger

	// MaxLoginAttempts failures in the window block the client IP; <= 0 disables blocking.
	MaxLoginAttempts int
	// CaptchaAfter failures require a solved captcha on login; <= 0 disables it.
	CaptchaAfter int

	CSRFEnabled bool
	// CSRFSecret seeds the CSRF token key.
	CSRFSecret    string
	SecureCookies bool

	AllowedOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For / X-Real-IP is
	// believed. Empty means the TCP peer address is always the client.
	TrustedProxies []netip.Prefix
	MaxBodySize    int64
	IsDevelopment  bool
}

type Handler struct {
	gateway  *auth.Gateway
	sessions *auth.Sessions
	store    store.Store
	logger   *slog.Logger
	limiter  *rateLimiter
	opts     Options
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gateway:  opts.Gateway,
		sessions: opts.Sessions,
		store:    opts.Store,
		logger:   logger,
		limiter:  newRateLimiter(opts.MaxLoginAttempts),
		opts:     opts,
	}
}

// Routes builds the router with the full middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(realIP(h.opts.TrustedProxies))
	r.Use(requestID)
	r.Use(requestLogger(h.logger))
	r.Use(recoverer(h.logger))
	r.Use(securityHeaders(h.opts.IsDevelopment))
	r.Use(cors(h.opts.AllowedOrigins))
	r.Use(maxBodySize(h.opts.MaxBodySize))
	if h.opts.CSRFEnabled {
		key := sha256.Sum256([]byte(h.opts.CSRFSecret + "csrf"))
		r.Use(csrfProtect(key[:], h.opts.SecureCookies, h.opts.AllowedOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NotFound")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
	})

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/captcha", h.NewCaptcha)
		r.Get("/captcha/{file}", h.CaptchaImage)
		if h.opts.CSRFEnabled {
			r.Get("/csrf", h.CSRFToken)
		}

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.Me)
			r.Post("/users/password", h.ChangeOwnPassword)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Get("/users", h.ListUsers)
				r.Post("/users", h.CreateUser)
				r.Post("/users/{username}/password", h.ResetPassword)
				r.Delete("/users/{username}", h.DeleteUser)
			})
		})
	})

	return r
}
