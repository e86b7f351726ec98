// Package config loads the gateway settings from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/gorilla/securecookie"
)

const DefaultMucajeyURL = "http://mucajey-api:3000"

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	ListenIP string `env:"LISTEN_IP"`
	Port     int    `env:"PORT" envDefault:"4173"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	SessionSecure bool          `env:"SESSION_SECURE" envDefault:"false"`

	// User store
	UserStore string `env:"ADMIN_FRONTEND_USER_STORE" envDefault:"json"`
	UserFile  string `env:"ADMIN_FRONTEND_USER_FILE" envDefault:"data/user/user.json"`
	UserDB    string `env:"ADMIN_FRONTEND_USER_DB" envDefault:"data/user/users.db"`
	// Seals API keys at rest when set.
	APIKeySecret string `env:"ADMIN_FRONTEND_APIKEY_SECRET"`

	// mucajey API registration; the first non-empty URL wins.
	MucajeyInternalURL string        `env:"ADMIN_FRONTEND_MUCAJEY_API_INTERNAL_URL"`
	MucajeyPublicURL   string        `env:"ADMIN_FRONTEND_MUCAJEY_API_URL"`
	MucajeyLegacyURL   string        `env:"MUCAJEY_API_URL"`
	RegisterPath       string        `env:"ADMIN_FRONTEND_MUCAJEY_REGISTER_PATH" envDefault:"/register"`
	AppName            string        `env:"ADMIN_FRONTEND_APP_NAME" envDefault:"mucajey-admin-frontend"`
	AppVersion         string        `env:"ADMIN_FRONTEND_APP_VERSION"`
	Platform           string        `env:"ADMIN_FRONTEND_PLATFORM" envDefault:"admin-frontend"`
	DeviceIDPrefix     string        `env:"ADMIN_FRONTEND_DEVICE_ID_PREFIX" envDefault:"admin-frontend"`
	MucajeyServiceKey  string        `env:"ADMIN_FRONTEND_MUCAJEY_API_KEY"`
	MucajeyTimeout     time.Duration `env:"ADMIN_FRONTEND_MUCAJEY_TIMEOUT" envDefault:"0s"`

	// HTTP hardening
	CSRFEnabled        bool   `env:"CSRF_ENABLED" envDefault:"false"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	// Peers whose X-Forwarded-For / X-Real-IP is believed; IPs or CIDRs.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
	MaxRequestBodySize int64  `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
	LoginMaxAttempts   int    `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginCaptchaAfter  int    `env:"LOGIN_CAPTCHA_AFTER" envDefault:"0"`
	BcryptCost         int    `env:"BCRYPT_COST" envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	BootstrapUser     string `env:"ADMIN_FRONTEND_BOOTSTRAP_USER" envDefault:"admin"`
	BootstrapPassword string `env:"ADMIN_FRONTEND_BOOTSTRAP_PASSWORD"`

	// GeneratedSecret is true when SessionSecret was not configured.
	GeneratedSecret bool

	trustedProxies []netip.Prefix
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.trim()

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		cfg.GeneratedSecret = true
	}

	switch cfg.UserStore {
	case "json", "sqlite":
	default:
		return nil, fmt.Errorf("unknown user store %q (want json or sqlite)", cfg.UserStore)
	}
	proxies, err := parseProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	cfg.trustedProxies = proxies

	if cfg.SessionMaxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE must be positive, got %s", cfg.SessionMaxAge)
	}
	return cfg, nil
}

func (c *Config) trim() {
	for _, s := range []*string{
		&c.AppEnv, &c.ListenIP, &c.SessionSecret, &c.UserStore, &c.UserFile, &c.UserDB,
		&c.APIKeySecret, &c.MucajeyInternalURL, &c.MucajeyPublicURL, &c.MucajeyLegacyURL,
		&c.RegisterPath, &c.AppName, &c.AppVersion, &c.Platform, &c.DeviceIDPrefix,
		&c.MucajeyServiceKey, &c.CORSAllowedOrigins, &c.TrustedProxies, &c.LogLevel, &c.LogFormat,
		&c.BootstrapUser,
	} {
		*s = strings.TrimSpace(*s)
	}
	// Trimmed values that end up empty fall back to their defaults.
	if c.RegisterPath == "" {
		c.RegisterPath = "/register"
	}
	if c.AppName == "" {
		c.AppName = "mucajey-admin-frontend"
	}
	if c.Platform == "" {
		c.Platform = "admin-frontend"
	}
	if c.DeviceIDPrefix == "" {
		c.DeviceIDPrefix = "admin-frontend"
	}
}

// MucajeyBaseURL picks the registration base URL.
func (c *Config) MucajeyBaseURL() string {
	for _, u := range []string{c.MucajeyInternalURL, c.MucajeyPublicURL, c.MucajeyLegacyURL} {
		if u != "" {
			return u
		}
	}
	return DefaultMucajeyURL
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenIP, c.Port)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// TrustedProxyPrefixes returns the parsed TRUSTED_PROXIES.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	return c.trustedProxies
}

func parseProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
