// Package auth verifies credentials, keeps the browser session and manages
// the user list on behalf of admins.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"mucajeyadmin/models"
	"mucajeyadmin/store"
)

// Registrar obtains an external API key for a user.
type Registrar interface {
	Register(ctx context.Context, username string) (string, error)
}

// Gateway implements the user-facing auth operations on top of a Store.
type Gateway struct {
	store     store.Store
	registrar Registrar
	cost      int
	logger    *slog.Logger

	// dummyHash is compared against when a username is unknown, so a miss
	// costs as much as a wrong password.
	dummyHash string
}

func NewGateway(st store.Store, registrar Registrar, cost int, logger *slog.Logger) (*Gateway, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	dummy, err := HashPassword("mucajey-dummy-password", cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Gateway{
		store:     st,
		registrar: registrar,
		cost:      cost,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Login verifies the credentials and makes sure the user holds an external
// API key. A registration failure fails the login even though the password
// was correct.
func (g *Gateway) Login(ctx context.Context, username, password string) (models.Profile, error) {
	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return models.Profile{}, err
	}

	i, ok := store.FindByUsername(users, username)
	if !ok {
		CheckPasswordHash(password, g.dummyHash)
		return models.Profile{}, ErrInvalidCredentials
	}
	if !CheckPasswordHash(password, users[i].PasswordHash) {
		return models.Profile{}, ErrInvalidCredentials
	}

	if users[i].APIKey == "" {
		key, err := g.registrar.Register(ctx, users[i].Username)
		if err != nil {
			g.logger.ErrorContext(ctx, "api key registration failed",
				slog.String("username", users[i].Username),
				slog.String("error", err.Error()),
			)
			return models.Profile{}, &UpstreamError{Username: users[i].Username, Err: err}
		}
		users[i].APIKey = key
		if err := g.store.SaveAll(ctx, users); err != nil {
			return models.Profile{}, err
		}
	}

	return users[i].Profile(), nil
}

// CurrentUser resolves a session username. A username the store no longer
// knows yields ok == false.
func (g *Gateway) CurrentUser(ctx context.Context, username string) (models.Profile, bool, error) {
	if username == "" {
		return models.Profile{}, false, nil
	}
	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return models.Profile{}, false, err
	}
	i, ok := store.FindByUsername(users, username)
	if !ok || users[i].Username != username {
		return models.Profile{}, false, nil
	}
	return users[i].Profile(), true, nil
}

func (g *Gateway) ListUsers(ctx context.Context) ([]models.Profile, error) {
	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (g *Gateway) CreateUser(ctx context.Context, username, password string, role models.Role) (models.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Profile{}, required("username")
	}
	if password == "" {
		return models.Profile{}, required("password")
	}

	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	if _, exists := store.FindByUsername(users, username); exists {
		return models.Profile{}, ErrUserExists
	}

	hash, err := HashPassword(password, g.cost)
	if err != nil {
		return models.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: hash, Role: models.ParseRole(role)}
	if err := g.store.SaveAll(ctx, append(users, user)); err != nil {
		return models.Profile{}, err
	}

	g.logger.InfoContext(ctx, "user created", slog.String("username", username), slog.String("role", string(user.Role)))
	return user.Profile(), nil
}

// ChangeOwnPassword rotates the actor's password. Non-admins must prove the
// current password; admins may skip it.
func (g *Gateway) ChangeOwnPassword(ctx context.Context, actor models.Profile, current, next string) (models.Profile, error) {
	if next == "" {
		return models.Profile{}, required("newPassword")
	}

	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	i, ok := store.FindByUsername(users, actor.Username)
	if !ok {
		return models.Profile{}, ErrUserNotFound
	}

	if !actor.IsAdmin() {
		if current == "" {
			return models.Profile{}, required("currentPassword")
		}
		if !CheckPasswordHash(current, users[i].PasswordHash) {
			return models.Profile{}, ErrCurrentPasswordInvalid
		}
	}

	return g.replaceHash(ctx, users, i, next)
}

// ResetPassword replaces the target's password without any proof.
func (g *Gateway) ResetPassword(ctx context.Context, target, next string) (models.Profile, error) {
	if next == "" {
		return models.Profile{}, required("password")
	}

	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	i, ok := store.FindByUsername(users, target)
	if !ok {
		return models.Profile{}, ErrUserNotFound
	}

	return g.replaceHash(ctx, users, i, next)
}

func (g *Gateway) replaceHash(ctx context.Context, users []models.User, i int, password string) (models.Profile, error) {
	hash, err := HashPassword(password, g.cost)
	if err != nil {
		return models.Profile{}, fmt.Errorf("hash password: %w", err)
	}
	users[i].PasswordHash = hash
	if err := g.store.SaveAll(ctx, users); err != nil {
		return models.Profile{}, err
	}
	g.logger.InfoContext(ctx, "password changed", slog.String("username", users[i].Username))
	return users[i].Profile(), nil
}

// DeleteUser removes target. The acting admin cannot delete their own account.
func (g *Gateway) DeleteUser(ctx context.Context, actor models.Profile, target string) error {
	target = strings.TrimSpace(target)
	if actor.Username == target {
		return ErrSelfDelete
	}

	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	i, ok := store.FindByUsername(users, target)
	if !ok {
		return ErrUserNotFound
	}

	if err := g.store.SaveAll(ctx, slices.Delete(users, i, i+1)); err != nil {
		return err
	}
	g.logger.InfoContext(ctx, "user deleted", slog.String("username", target), slog.String("by", actor.Username))
	return nil
}

// EnsureBootstrapAdmin seeds an admin account when the store holds no users.
// It reports whether a user was created.
func (g *Gateway) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return false, nil
	}
	users, err := g.store.LoadAll(ctx)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}
	if _, err := g.CreateUser(ctx, username, password, models.RoleAdmin); err != nil {
		return false, err
	}
	g.logger.WarnContext(ctx, "bootstrap admin created, change its password", slog.String("username", strings.TrimSpace(username)))
	return true, nil
}
