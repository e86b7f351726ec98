package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mucajeyadmin/models"
	"mucajeyadmin/store"
)

type fakeRegistrar struct {
	mu    sync.Mutex
	calls []string
	key   string
	err   error
}

func (f *fakeRegistrar) Register(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, username)
	if f.err != nil {
		return "", f.err
	}
	return f.key, nil
}

func (f *fakeRegistrar) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newTestGateway(t *testing.T, reg Registrar, users ...models.User) (*Gateway, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(users...)
	g, err := NewGateway(st, reg, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return g, st
}

func loadUser(t *testing.T, st store.Store, name string) models.User {
	t.Helper()
	users, err := st.LoadAll(context.Background())
	require.NoError(t, err)
	i, ok := store.FindByUsername(users, name)
	require.True(t, ok, "user %s not found", name)
	return users[i]
}

func TestLoginPopulatesAPIKeyOnce(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistrar{key: "issued-key"}
	g, st := newTestGateway(t, reg,
		models.User{Username: "alice", PasswordHash: mustHash(t, "secret"), Role: models.RoleAdmin})

	p, err := g.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.Profile{Username: "alice", Role: models.RoleAdmin, APIKey: "issued-key"}, p)
	assert.Equal(t, "issued-key", loadUser(t, st, "alice").APIKey)
	assert.Equal(t, []string{"alice"}, reg.calls)

	p, err = g.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "issued-key", p.APIKey)
	assert.Equal(t, 1, reg.Calls(), "registration must not repeat once a key is stored")
	assert.Equal(t, 1, st.Saves())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistrar{key: "k"}
	g, st := newTestGateway(t, reg,
		models.User{Username: "alice", PasswordHash: mustHash(t, "secret"), Role: models.RoleAdmin})

	_, err1 := g.Login(ctx, "alice", "wrong")
	_, err2 := g.Login(ctx, "alice", "wrong")
	_, err3 := g.Login(ctx, "mallory", "wrong")

	for _, err := range []error{err1, err2, err3} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, err1.Error(), err.Error())
	}
	assert.Equal(t, 0, reg.Calls())
	assert.Equal(t, 0, st.Saves())
}

func TestLoginTrimsUsername(t *testing.T) {
	g, _ := newTestGateway(t, &fakeRegistrar{key: "k"},
		models.User{Username: "alice", PasswordHash: mustHash(t, "secret"), APIKey: "existing"})

	p, err := g.Login(context.Background(), "  alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "existing", p.APIKey)
}

func TestLoginRegistrationFailure(t *testing.T) {
	upstream := errors.New("failed to register API key (app not allowed)")
	g, st := newTestGateway(t, &fakeRegistrar{err: upstream},
		models.User{Username: "bob", PasswordHash: mustHash(t, "pw")})

	_, err := g.Login(context.Background(), "bob", "pw")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bob", ue.Username)
	assert.ErrorIs(t, err, upstream)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "", loadUser(t, st, "bob").APIKey)
	assert.Equal(t, 0, st.Saves())
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "alice", PasswordHash: "h", Role: models.RoleAdmin, APIKey: "k"})

	p, ok, err := g.CurrentUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Profile{Username: "alice", Role: models.RoleAdmin, APIKey: "k"}, p)

	_, ok, err = g.CurrentUser(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SaveAll(ctx, nil))
	_, ok, err = g.CurrentUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "a deleted user no longer has a session")
}

func TestListUsersOmitsHashes(t *testing.T) {
	g, _ := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "alice", PasswordHash: "h1", Role: models.RoleAdmin},
		models.User{Username: "bob", PasswordHash: "h2", APIKey: "k"})

	got, err := g.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Profile{
		{Username: "alice", Role: models.RoleAdmin},
		{Username: "bob", Role: models.RoleUser, APIKey: "k"},
	}, got)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "alice", PasswordHash: "h", Role: models.RoleAdmin})

	p, err := g.CreateUser(ctx, " bob ", "pw", "superuser")
	require.NoError(t, err)
	assert.Equal(t, models.Profile{Username: "bob", Role: models.RoleUser}, p)

	bob := loadUser(t, st, "bob")
	assert.True(t, CheckPasswordHash("pw", bob.PasswordHash))
	assert.Equal(t, "", bob.APIKey)

	p, err = g.CreateUser(ctx, "carol", "pw", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "alice", PasswordHash: "h", Role: models.RoleAdmin})

	_, err := g.CreateUser(ctx, "alice", "pw", models.RoleUser)
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, 0, st.Saves())

	_, err = g.CreateUser(ctx, "Alice", "pw", models.RoleUser)
	assert.NoError(t, err, "usernames are case-sensitive")
}

func TestCreateUserValidation(t *testing.T) {
	g, st := newTestGateway(t, &fakeRegistrar{})

	var ve *ValidationError
	_, err := g.CreateUser(context.Background(), "  ", "pw", models.RoleUser)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "username", ve.Field)

	_, err = g.CreateUser(context.Background(), "bob", "", models.RoleUser)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)
	assert.Equal(t, 0, st.Saves())
}

func TestChangeOwnPassword(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "alice", PasswordHash: mustHash(t, "admin-pw"), Role: models.RoleAdmin},
		models.User{Username: "bob", PasswordHash: mustHash(t, "bob-pw")})
	alice := models.Profile{Username: "alice", Role: models.RoleAdmin}
	bob := models.Profile{Username: "bob", Role: models.RoleUser}

	var ve *ValidationError
	_, err := g.ChangeOwnPassword(ctx, bob, "", "new")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "currentPassword", ve.Field)

	_, err = g.ChangeOwnPassword(ctx, bob, "bob-pw", "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "newPassword", ve.Field)

	_, err = g.ChangeOwnPassword(ctx, bob, "nope", "new")
	assert.ErrorIs(t, err, ErrCurrentPasswordInvalid)
	assert.Equal(t, 0, st.Saves())

	p, err := g.ChangeOwnPassword(ctx, bob, "bob-pw", "bob-new")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)
	assert.True(t, CheckPasswordHash("bob-new", loadUser(t, st, "bob").PasswordHash))

	_, err = g.ChangeOwnPassword(ctx, alice, "", "admin-new")
	require.NoError(t, err, "admins rotate their own password without proof")
	assert.True(t, CheckPasswordHash("admin-new", loadUser(t, st, "alice").PasswordHash))

	_, err = g.ChangeOwnPassword(ctx, models.Profile{Username: "ghost"}, "x", "y")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "bob", PasswordHash: mustHash(t, "old")})

	p, err := g.ResetPassword(ctx, "bob", "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.Summary{Username: "bob", Role: models.RoleUser}, p.Summary())
	assert.True(t, CheckPasswordHash("fresh", loadUser(t, st, "bob").PasswordHash))

	_, err = g.ResetPassword(ctx, "ghost", "fresh")
	assert.ErrorIs(t, err, ErrUserNotFound)

	var ve *ValidationError
	_, err = g.ResetPassword(ctx, "bob", "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{},
		models.User{Username: "alice", PasswordHash: "h", Role: models.RoleAdmin},
		models.User{Username: "bob", PasswordHash: "h"})
	alice := models.Profile{Username: "alice", Role: models.RoleAdmin}

	assert.ErrorIs(t, g.DeleteUser(ctx, alice, "alice"), ErrSelfDelete)
	assert.ErrorIs(t, g.DeleteUser(ctx, alice, " alice "), ErrSelfDelete)
	assert.Equal(t, 0, st.Saves())
	loadUser(t, st, "alice")

	assert.ErrorIs(t, g.DeleteUser(ctx, alice, "ghost"), ErrUserNotFound)

	require.NoError(t, g.DeleteUser(ctx, alice, "bob"))
	users, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	g, st := newTestGateway(t, &fakeRegistrar{})

	created, err := g.EnsureBootstrapAdmin(ctx, "admin", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = g.EnsureBootstrapAdmin(ctx, "admin", "first-pw")
	require.NoError(t, err)
	assert.True(t, created)
	admin := loadUser(t, st, "admin")
	assert.Equal(t, models.RoleAdmin, admin.Role)

	created, err = g.EnsureBootstrapAdmin(ctx, "other", "pw")
	require.NoError(t, err)
	assert.False(t, created)
}
