package auth

import (
	"context"
	"errors"
	"testing"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAuthProvider_BeginCounts(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()

	authURL, state, nonce, err := provider.Begin(ctx, ports.BeginInput{RedirectURL: "/auth/callback"})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state2, nonce2, err := provider.Begin(ctx, ports.BeginInput{RedirectURL: "/auth/callback"})
	require.NoError(t, err)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockAuthProvider_ExchangeCopiesGroups(t *testing.T) {
	provider := NewMockAuthProvider()
	provider.DefaultUser.Groups = []string{"portal-doctors"}

	id, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c"})
	require.NoError(t, err)
	id.Groups[0] = "mutated"
	assert.Equal(t, "portal-doctors", provider.DefaultUser.Groups[0])
	assert.False(t, id.ExpiresAt.IsZero())
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.Error(t, store.Save(ctx, domainauth.Session{}))
	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", UserID: "u1"}))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.Equal(t, ErrNotFound, err)

	store.GetErr = errors.New("down")
	_, err = store.Get(ctx, "s1")
	assert.EqualError(t, err, "down")
}

func TestMemoryProfileStore(t *testing.T) {
	store := NewMemoryProfileStore()
	ctx := context.Background()

	role, err := store.GetRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleNone, role)

	require.NoError(t, store.SetRole(ctx, "u1", domainauth.RoleDoctor))
	role, err = store.GetRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDoctor, role)
}

func TestFixedRole(t *testing.T) {
	assert.Equal(t, domainauth.RolePatient, FixedRole(domainauth.RolePatient).Map([]string{"x"}))
}
