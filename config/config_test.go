package config

import (
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 4173, cfg.Port)
	assert.Equal(t, ":4173", cfg.Addr())
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, "json", cfg.UserStore)
	assert.Equal(t, "data/user/user.json", cfg.UserFile)
	assert.Equal(t, DefaultMucajeyURL, cfg.MucajeyBaseURL())
	assert.Equal(t, "/register", cfg.RegisterPath)
	assert.Equal(t, "mucajey-admin-frontend", cfg.AppName)
	assert.Equal(t, "admin-frontend", cfg.Platform)
	assert.Equal(t, "admin-frontend", cfg.DeviceIDPrefix)
	assert.Equal(t, time.Duration(0), cfg.MucajeyTimeout)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.CSRFEnabled)
	assert.Nil(t, cfg.AllowedOrigins())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.TrustedProxyPrefixes())
}

func TestTrustedProxies(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"TRUSTED_PROXIES": " 10.0.0.1, ,172.16.0.0/12 , ::1"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.1/32"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("::1/128"),
	}, cfg.TrustedProxyPrefixes())

	_, err = LoadFrom(map[string]string{"TRUSTED_PROXIES": "proxy.internal"})
	assert.Error(t, err)
}

func TestGeneratedSecret(t *testing.T) {
	cfg1, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	cfg2, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.True(t, cfg1.GeneratedSecret)
	assert.Len(t, cfg1.SessionSecret, 64)
	assert.NotEqual(t, cfg1.SessionSecret, cfg2.SessionSecret)

	cfg, err := LoadFrom(map[string]string{"SESSION_SECRET": "  s3cret "})
	require.NoError(t, err)
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
}

func TestMucajeyURLFallbackChain(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ADMIN_FRONTEND_MUCAJEY_API_INTERNAL_URL": "   ",
		"ADMIN_FRONTEND_MUCAJEY_API_URL":          "https://public.example",
		"MUCAJEY_API_URL":                         "https://legacy.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://public.example", cfg.MucajeyBaseURL())

	cfg, err = LoadFrom(map[string]string{
		"ADMIN_FRONTEND_MUCAJEY_API_INTERNAL_URL": "http://internal:3000",
		"MUCAJEY_API_URL":                         "https://legacy.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://internal:3000", cfg.MucajeyBaseURL())

	cfg, err = LoadFrom(map[string]string{"MUCAJEY_API_URL": "https://legacy.example"})
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.example", cfg.MucajeyBaseURL())
}

func TestBlankValuesFallBack(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ADMIN_FRONTEND_MUCAJEY_REGISTER_PATH": " ",
		"ADMIN_FRONTEND_APP_NAME":              "",
		"ADMIN_FRONTEND_APP_VERSION":           " 2.0.1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "/register", cfg.RegisterPath)
	assert.Equal(t, "mucajey-admin-frontend", cfg.AppName)
	assert.Equal(t, "2.0.1", cfg.AppVersion)
}

func TestOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":                      "9090",
		"LISTEN_IP":                 "127.0.0.1",
		"SESSION_MAX_AGE":           "2h",
		"ADMIN_FRONTEND_USER_STORE": "sqlite",
		"CORS_ALLOWED_ORIGINS":      "https://a.example, ,https://b.example",
		"LOG_LEVEL":                 "DEBUG",
		"CSRF_ENABLED":              "true",
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, 2*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, "sqlite", cfg.UserStore)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.CSRFEnabled)
}

func TestInvalidValues(t *testing.T) {
	_, err := LoadFrom(map[string]string{"PORT": "not-a-number"})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{"ADMIN_FRONTEND_USER_STORE": "postgres"})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{"SESSION_MAX_AGE": "-1h"})
	assert.Error(t, err)
}
