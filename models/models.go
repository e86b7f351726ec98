package models

import "strings"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps any input onto the closed role set. Only the exact string
// "admin" grants the admin role.
func ParseRole(v any) Role {
	switch r := v.(type) {
	case string:
		if r == string(RoleAdmin) {
			return RoleAdmin
		}
	case Role:
		if r == RoleAdmin {
			return RoleAdmin
		}
	}
	return RoleUser
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is a persisted user record. The JSON names match the on-disk format
// of data/user/user.json.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password"`
	Role         Role   `json:"type"`
	APIKey       string `json:"apiKey"`
}

// Normalize trims the username and API key and canonicalizes the role.
func (u User) Normalize() User {
	return User{
		Username:     strings.TrimSpace(u.Username),
		PasswordHash: u.PasswordHash,
		Role:         ParseRole(u.Role),
		APIKey:       strings.TrimSpace(u.APIKey),
	}
}

// Valid reports whether the record has both a username and a password hash.
func (u User) Valid() bool {
	return u.Username != "" && u.PasswordHash != ""
}

func (u User) Profile() Profile {
	return Profile{Username: u.Username, Role: u.Role, APIKey: u.APIKey}
}

// Sanitize normalizes every record and drops the invalid ones, keeping order.
func Sanitize(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		n := u.Normalize()
		if n.Valid() {
			out = append(out, n)
		}
	}
	return out
}

// Profile is what clients get to see of a user. It never carries the hash.
type Profile struct {
	Username string `json:"username"`
	Role     Role   `json:"type"`
	APIKey   string `json:"apiKey"`
}

func (p Profile) IsAdmin() bool {
	return p.Role.IsAdmin()
}

// Summary is the short form returned by user mutations.
type Summary struct {
	Username string `json:"username"`
	Role     Role   `json:"type"`
}

func (p Profile) Summary() Summary {
	return Summary{Username: p.Username, Role: p.Role}
}
