package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mucajeyadmin/auth"
	"mucajeyadmin/models"
	"mucajeyadmin/store"
)

func stubPassword(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestAddListPasswdDelete(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "user.json")
	var out bytes.Buffer

	stubPassword(t, "pw1", "pw1")
	require.NoError(t, run(ctx, []string{"add", "-cost", "4", "-file", file, "-user", "alice", "-admin"}, &out, io.Discard))
	assert.Contains(t, out.String(), "created alice (admin)")

	stubPassword(t, "pw2", "pw2")
	require.NoError(t, run(ctx, []string{"add", "-cost", "4", "-file", file, "-user", "bob"}, &out, io.Discard))

	stubPassword(t, "x", "x")
	err := run(ctx, []string{"add", "-cost", "4", "-file", file, "-user", "bob"}, &out, io.Discard)
	assert.ErrorIs(t, err, auth.ErrUserExists)

	out.Reset()
	require.NoError(t, run(ctx, []string{"list", "-file", file}, &out, io.Discard))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "alice")
	assert.Contains(t, lines[1], "admin")
	assert.Contains(t, lines[2], "bob")

	stubPassword(t, "pw3", "pw3")
	require.NoError(t, run(ctx, []string{"passwd", "-cost", "4", "-file", file, "-user", "bob"}, &out, io.Discard))
	users, err := store.NewFileStore(file).LoadAll(ctx)
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("pw3", users[1].PasswordHash))
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	require.NoError(t, run(ctx, []string{"delete", "-file", file, "-user", "bob"}, &out, io.Discard))
	users, err = store.NewFileStore(file).LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestPasswordMismatch(t *testing.T) {
	stubPassword(t, "one", "two")
	err := run(context.Background(), []string{"hash"}, io.Discard, io.Discard)
	assert.EqualError(t, err, "passwords do not match")
}

func TestHash(t *testing.T) {
	stubPassword(t, "secret", "secret")
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"hash", "-cost", "4"}, &out, io.Discard))
	assert.True(t, auth.CheckPasswordHash("secret", strings.TrimSpace(out.String())))
}

func TestUsage(t *testing.T) {
	assert.ErrorIs(t, run(context.Background(), nil, io.Discard, io.Discard), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"frobnicate"}, io.Discard, io.Discard), errUsage)
}
