package auth

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const SessionName = "mucajey-admin-session"

const usernameKey = "username"

// Sessions stores the authenticated username in a signed, encrypted cookie.
type Sessions struct {
	store *sessions.CookieStore
}

type SessionOptions struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

func NewSessions(opts SessionOptions) *Sessions {
	// Derive two 32-byte keys from the secret: one for HMAC signing, one for AES.
	authKey := sha256.Sum256([]byte(opts.Secret + "auth"))
	encKey := sha256.Sum256([]byte(opts.Secret + "encryption"))

	store := sessions.NewCookieStore(authKey[:], encKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(opts.MaxAge / time.Second))

	return &Sessions{store: store}
}

// Username returns the username bound to the request's session, or "" when
// there is no valid session.
func (s *Sessions) Username(r *http.Request) string {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return ""
	}
	name, _ := session.Values[usernameKey].(string)
	return name
}

func (s *Sessions) SetUser(w http.ResponseWriter, r *http.Request, username string) error {
	// A stale or undecodable cookie still yields a fresh session to write into.
	session, _ := s.store.Get(r, SessionName)
	session.Values[usernameKey] = username
	return session.Save(r, w)
}

// Clear expires the session cookie. It succeeds whether or not a session exists.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
