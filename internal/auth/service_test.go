package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushr/campushr/internal/shared"
	_ "github.com/campushr/campushr/testing"
)

type fakeAccountRepo struct {
	accounts map[string]Account
}

func (f *fakeAccountRepo) FindByEmail(_ context.Context, email string) (Account, error) {
	a, ok := f.accounts[email]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccountRepo) Get(_ context.Context, id int64) (Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, shared.ErrNotFound
}

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := NewTokenStore(client, time.Hour)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	teacherID := int64(7)
	repo := &fakeAccountRepo{accounts: map[string]Account{
		"lucia@campus.test": {ID: 1, Email: "lucia@campus.test", PasswordHash: string(hash), TeacherID: &teacherID, Active: true},
		"root@campus.test":  {ID: 2, Email: "root@campus.test", PasswordHash: string(hash), Admin: true, Active: true},
		"gone@campus.test":  {ID: 3, Email: "gone@campus.test", PasswordHash: string(hash), Active: false},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, tokens), mr
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, _ := newService(t)

	token, identity, err := svc.Login(context.Background(), "lucia@campus.test", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.EqualValues(t, 1, identity.AccountID)
	require.EqualValues(t, 7, identity.TeacherID)

	resolved, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, identity, resolved)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Login(context.Background(), "lucia@campus.test", "nope")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Login(context.Background(), "who@campus.test", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Login(context.Background(), "gone@campus.test", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newService(t)

	token, _, err := svc.Login(context.Background(), "root@campus.test", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestTokenExpires(t *testing.T) {
	svc, mr := newService(t)

	token, _, err := svc.Login(context.Background(), "lucia@campus.test", "correct horse")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestResolveGarbageToken(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Resolve(context.Background(), "not-a-token")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
