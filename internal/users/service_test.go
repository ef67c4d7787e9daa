package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-forum/parley/internal/shared"
	"github.com/parley-forum/parley/internal/token"
	_ "github.com/parley-forum/parley/testing"
)

type mockRepository struct {
	byID       map[int64]*User
	byUsername map[string]*User
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		byID:       make(map[int64]*User),
		byUsername: make(map[string]*User),
		nextID:     1,
	}
}

func (m *mockRepository) Create(ctx context.Context, user User) (int64, error) {
	if _, exists := m.byUsername[user.Username]; exists {
		return 0, shared.ErrAlreadyExists
	}
	user.ID = m.nextID
	m.nextID++
	stored := user
	m.byID[stored.ID] = &stored
	m.byUsername[stored.Username] = &stored
	return stored.ID, nil
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	user, ok := m.byUsername[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepository) List(ctx context.Context, page, perPage int) ([]User, int, error) {
	var result []User
	for _, user := range m.byID {
		result = append(result, *user)
	}
	return result, len(result), nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, *token.Codec) {
	t.Helper()
	codec, err := token.New("users-test-secret")
	require.NoError(t, err)
	repo := newMockRepository()
	return NewService(repo, codec, 720*time.Hour, 30*time.Minute), repo, codec
}

func TestRegisterHashesPassword(t *testing.T) {
	service, repo, _ := newTestService(t)

	user, err := service.Register(context.Background(), RegisterInput{
		Username: "Alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username, "username must be canonicalized")
	assert.Empty(t, user.PasswordHash, "hash must not leave the service")

	stored := repo.byUsername["alice"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), RegisterInput{Username: "ALICE", Email: "b@example.com", Password: "password2"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists, "case variants collide after canonicalization")
}

func TestLoginIssuesDecodableToken(t *testing.T) {
	service, _, codec := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	raw, err := service.Login(context.Background(), "Alice", "password1", true)
	require.NoError(t, err)

	claims, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.False(t, claims.IsAdmin)
}

func TestLoginShortWindow(t *testing.T) {
	service, _, codec := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{Username: "bob", Email: "b@example.com", Password: "password1"})
	require.NoError(t, err)

	raw, err := service.Login(context.Background(), "bob", "password1", false)
	require.NoError(t, err)

	claims, err := codec.Decode(raw)
	require.NoError(t, err)
	window := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, 30*time.Minute, window, "remember=false must use the short validity window")
}

func TestLoginFailures(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), "alice", "wrong", true)
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = service.Login(context.Background(), "nobody", "password1", true)
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "unknown user must look like a bad password")
}

func TestLookupUser(t *testing.T) {
	service, repo, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	repo.byUsername["alice"].IsAdmin = true

	resolved, err := service.LookupUser(context.Background(), "Alice")
	require.NoError(t, err)
	assert.True(t, resolved.IsAdmin, "lookup must reflect the current database role")

	_, err = service.LookupUser(context.Background(), "ghost")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
