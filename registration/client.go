// Package registration talks to the mucajey API to obtain per-user API keys.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HeaderAPIKey carries the optional service key on register calls.
const HeaderAPIKey = "X-API-Key"

var (
	ErrNotConfigured   = errors.New("missing mucajey API register URL configuration")
	ErrUsernameMissing = errors.New("username is required to request an API key")
	ErrNoAPIKey        = errors.New("mucajey API did not return an apiKey")
)

// Error is a non-2xx answer from the register endpoint.
type Error struct {
	StatusCode int
	// Detail is the upstream error or message field, falling back to the
	// HTTP status text.
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to register API key (%s)", e.Detail)
}

// Config describes where and how to register.
type Config struct {
	BaseURL       string
	RegisterPath  string
	AppName       string
	AppVersion    string
	Platform      string
	DevicePrefix  string
	ServiceAPIKey string
	// Timeout bounds a whole register call. Zero means no limit.
	Timeout time.Duration
}

// Client registers devices with the mucajey API.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

type registerRequest struct {
	AppName    string `json:"appName"`
	DeviceID   string `json:"deviceId"`
	AppVersion string `json:"appVersion,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

type registerResponse struct {
	APIKey  string `json:"apiKey"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New builds a client. An unusable base/path combination is logged and leaves
// the client in a state where every Register call fails with ErrNotConfigured.
func New(cfg Config, logger *slog.Logger) *Client {
	endpoint, err := ResolveEndpoint(cfg.BaseURL, cfg.RegisterPath)
	if err != nil {
		logger.Warn("invalid mucajey API register path/base combo",
			slog.String("path", cfg.RegisterPath),
			slog.String("base", cfg.BaseURL),
			slog.String("error", err.Error()),
		)
	}
	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// ResolveEndpoint resolves path against an absolute base URL.
func ResolveEndpoint(base, path string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if b.Scheme == "" || b.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", base)
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(p).String(), nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// DeviceID derives the device identifier sent for a user.
func (c *Client) DeviceID(username string) string {
	return c.cfg.DevicePrefix + ":" + username
}

// Register requests a fresh API key for username.
func (c *Client) Register(ctx context.Context, username string) (string, error) {
	if c.endpoint == "" {
		return "", ErrNotConfigured
	}

	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return "", ErrUsernameMissing
	}

	payload, err := json.Marshal(registerRequest{
		AppName:    c.cfg.AppName,
		DeviceID:   c.DeviceID(trimmed),
		AppVersion: c.cfg.AppVersion,
		Platform:   c.cfg.Platform,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.ServiceAPIKey != "" {
		req.Header.Set(HeaderAPIKey, c.cfg.ServiceAPIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call mucajey API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read mucajey API response: %w", err)
	}

	var body *registerResponse
	if len(raw) > 0 {
		body = &registerResponse{}
		if err := json.Unmarshal(raw, body); err != nil {
			return "", fmt.Errorf("invalid JSON returned from mucajey API: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{StatusCode: resp.StatusCode, Detail: failureDetail(resp, body)}
	}

	if body == nil || body.APIKey == "" {
		return "", ErrNoAPIKey
	}

	c.logger.InfoContext(ctx, "registered API key", slog.String("username", trimmed))
	return body.APIKey, nil
}

func failureDetail(resp *http.Response, body *registerResponse) string {
	if body != nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
