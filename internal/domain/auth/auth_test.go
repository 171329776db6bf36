package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSessionStore struct {
	sessions map[string]*Session
	users    map[string]*User
	err      error
}

func (m *mockSessionStore) FindByTokenHash(_ context.Context, hash string) (*Session, *User, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	s, ok := m.sessions[hash]
	if !ok {
		return nil, nil, errors.New("session not found")
	}
	return s, m.users[s.UserID], nil
}

func newStoreWithSession(pepper []byte, token string, expiresAt time.Time) *mockSessionStore {
	hash := HashToken(pepper, token)
	return &mockSessionStore{
		sessions: map[string]*Session{
			hash: {ID: "s1", UserID: "u1", TokenHash: hash, ExpiresAt: expiresAt},
		},
		users: map[string]*User{
			"u1": {ID: "u1", Email: "user@example.com", FullName: "Test User"},
		},
	}
}

func TestVerify_ValidToken(t *testing.T) {
	pepper := []byte("pepper")
	store := newStoreWithSession(pepper, "tok-abc", time.Now().Add(time.Hour))
	v := NewTokenVerifier(store, pepper)

	user, err := v.Verify(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestVerify_EmptyToken(t *testing.T) {
	v := NewTokenVerifier(&mockSessionStore{}, []byte("pepper"))

	_, err := v.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_UnknownToken(t *testing.T) {
	pepper := []byte("pepper")
	store := newStoreWithSession(pepper, "tok-abc", time.Now().Add(time.Hour))
	v := NewTokenVerifier(store, pepper)

	_, err := v.Verify(context.Background(), "tok-wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_ExpiredSession(t *testing.T) {
	pepper := []byte("pepper")
	store := newStoreWithSession(pepper, "tok-abc", time.Now().Add(-time.Minute))
	v := NewTokenVerifier(store, pepper)

	_, err := v.Verify(context.Background(), "tok-abc")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_NoExpiry(t *testing.T) {
	pepper := []byte("pepper")
	store := newStoreWithSession(pepper, "tok-abc", time.Time{})
	v := NewTokenVerifier(store, pepper)

	user, err := v.Verify(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestVerify_StoreError(t *testing.T) {
	v := NewTokenVerifier(&mockSessionStore{err: errors.New("db down")}, []byte("pepper"))

	_, err := v.Verify(context.Background(), "tok-abc")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_PepperMismatch(t *testing.T) {
	store := newStoreWithSession([]byte("old-pepper"), "tok-abc", time.Now().Add(time.Hour))
	v := NewTokenVerifier(store, []byte("new-pepper"))

	_, err := v.Verify(context.Background(), "tok-abc")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHashToken_Deterministic(t *testing.T) {
	h1 := HashToken([]byte("pepper"), "tok")
	h2 := HashToken([]byte("pepper"), "tok")
	h3 := HashToken([]byte("other"), "tok")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
