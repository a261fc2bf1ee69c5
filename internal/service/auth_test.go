package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	portmocks "github.com/medportal/portalgate/internal/mocks"
	mocks "github.com/medportal/portalgate/internal/mocks/auth"
	"github.com/medportal/portalgate/internal/ports"
	"github.com/medportal/portalgate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = testutil.TestTime()

type authFixture struct {
	provider *mocks.MockAuthProvider
	sessions *mocks.MemorySessionStore
	profiles *mocks.MemoryProfileStore
	svc      *AuthService
}

func newAuthFixture(t *testing.T, roles ports.RoleMapper) authFixture {
	t.Helper()
	f := authFixture{
		provider: mocks.NewMockAuthProvider(),
		sessions: mocks.NewMemorySessionStore(),
		profiles: mocks.NewMemoryProfileStore(),
	}
	f.svc = NewAuthService(AuthServiceOptions{
		Provider:   f.provider,
		Sessions:   f.sessions,
		Roles:      roles,
		Profiles:   f.profiles,
		SessionTTL: 8 * time.Hour,
		Now:        testutil.FixedTimeFunc(fixedNow),
	})
	return f
}

func validLogin() CompleteLoginInput {
	return CompleteLoginInput{Code: "code", State: "state-1", Nonce: "nonce-1"}
}

func TestAuthService_BeginLogin(t *testing.T) {
	f := newAuthFixture(t, mocks.FixedRole(domainauth.RoleNone))

	result, err := f.svc.BeginLogin(context.Background(), "https://app.example.com/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", result.AuthURL)
	assert.Equal(t, "state-1", result.State)
	assert.Equal(t, "nonce-1", result.Nonce)

	_, err = f.svc.BeginLogin(context.Background(), "")
	require.Error(t, err)
}

func TestAuthService_BeginLogin_ProviderError(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.provider.BeginFunc = func(context.Context, ports.BeginInput) (string, string, string, error) {
		return "", "", "", errors.New("idp down")
	}

	_, err := f.svc.BeginLogin(context.Background(), "/auth/callback")
	require.ErrorContains(t, err, "begin auth flow")
}

func TestAuthService_CompleteLogin_RoleFromGroups(t *testing.T) {
	f := newAuthFixture(t, mocks.FixedRole(domainauth.RoleDoctor))

	result, err := f.svc.CompleteLogin(context.Background(), validLogin())
	require.NoError(t, err)

	sess := result.Session
	assert.Equal(t, domainauth.RoleDoctor, sess.Role)
	assert.False(t, sess.PendingRoleSelection)
	assert.Equal(t, "Mock", sess.FirstName)
	assert.Equal(t, "User", sess.LastName)
	assert.Equal(t, fixedNow.Add(8*time.Hour), sess.ExpiresAt)
	_, parseErr := uuid.Parse(sess.ID)
	require.NoError(t, parseErr)

	stored, err := f.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, stored)
}

func TestAuthService_CompleteLogin_ProfileRoleWins(t *testing.T) {
	f := newAuthFixture(t, mocks.FixedRole(domainauth.RolePatient))
	require.NoError(t, f.profiles.SetRole(context.Background(), "mock-user-1", domainauth.RoleCompanyAdmin))

	result, err := f.svc.CompleteLogin(context.Background(), validLogin())
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleCompanyAdmin, result.Session.Role)
}

func TestAuthService_CompleteLogin_NoRoleIsPending(t *testing.T) {
	f := newAuthFixture(t, mocks.FixedRole(domainauth.RoleNone))

	result, err := f.svc.CompleteLogin(context.Background(), validLogin())
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleNone, result.Session.Role)
	assert.True(t, result.Session.PendingRoleSelection)
}

func TestAuthService_CompleteLogin_WithoutProfileStore(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Provider: mocks.NewMockAuthProvider(),
		Sessions: sessions,
		Roles:    mocks.FixedRole(domainauth.RolePatient),
	})

	result, err := svc.CompleteLogin(context.Background(), validLogin())
	require.NoError(t, err)
	assert.Equal(t, domainauth.RolePatient, result.Session.Role)
	assert.True(t, result.Session.ExpiresAt.After(time.Now()))
}

func TestAuthService_CompleteLogin_InputValidation(t *testing.T) {
	f := newAuthFixture(t, nil)
	for name, in := range map[string]CompleteLoginInput{
		"missing code":  {State: "s", Nonce: "n"},
		"missing state": {Code: "c", Nonce: "n"},
		"missing nonce": {Code: "c", State: "s"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CompleteLogin(context.Background(), in)
			require.Error(t, err)
			assert.Zero(t, f.sessions.Len())
		})
	}
}

func TestAuthService_CompleteLogin_Failures(t *testing.T) {
	t.Run("exchange error", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		f.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("bad code")
		}
		_, err := f.svc.CompleteLogin(context.Background(), validLogin())
		require.ErrorContains(t, err, "exchange authorization code")
	})

	t.Run("profile store error", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		f.profiles.GetErr = errors.New("db down")
		_, err := f.svc.CompleteLogin(context.Background(), validLogin())
		require.ErrorContains(t, err, "load profile role")
		assert.Zero(t, f.sessions.Len())
	})

	t.Run("session save error", func(t *testing.T) {
		f := newAuthFixture(t, mocks.FixedRole(domainauth.RoleDoctor))
		f.sessions.SaveErr = errors.New("redis down")
		_, err := f.svc.CompleteLogin(context.Background(), validLogin())
		require.ErrorContains(t, err, "save session")
	})

	t.Run("identity without user ID", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		f.provider.DefaultUser.UserID = ""
		_, err := f.svc.CompleteLogin(context.Background(), validLogin())
		require.Error(t, err)
	})
}

func TestAuthService_GetSession(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, domainauth.Session{ID: "live", UserID: "u", ExpiresAt: fixedNow.Add(time.Minute)}))
	require.NoError(t, f.sessions.Save(ctx, domainauth.Session{ID: "dead", UserID: "u", ExpiresAt: fixedNow.Add(-time.Minute)}))

	got, err := f.svc.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u", got.UserID)

	_, err = f.svc.GetSession(ctx, "dead")
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = f.sessions.Get(ctx, "dead")
	assert.Equal(t, mocks.ErrNotFound, err, "expired session is removed")

	_, err = f.svc.GetSession(ctx, "")
	require.Error(t, err)

	_, err = f.svc.GetSession(ctx, "missing")
	require.ErrorIs(t, err, mocks.ErrNotFound)
}

func TestAuthService_GetSession_ExpiredDeleteFails(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, domainauth.Session{ID: "dead", UserID: "u", ExpiresAt: fixedNow.Add(-time.Minute)}))
	f.sessions.DeleteErr = errors.New("redis down")

	_, err := f.svc.GetSession(ctx, "dead")
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorContains(t, err, "delete session")
}

func TestAuthService_SelectRole(t *testing.T) {
	f := newAuthFixture(t, mocks.FixedRole(domainauth.RoleNone))
	ctx := context.Background()

	login, err := f.svc.CompleteLogin(ctx, validLogin())
	require.NoError(t, err)
	require.True(t, login.Session.PendingRoleSelection)

	sess, err := f.svc.SelectRole(ctx, login.Session.ID, domainauth.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDoctor, sess.Role)
	assert.False(t, sess.PendingRoleSelection)

	stored, err := f.sessions.Get(ctx, login.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDoctor, stored.Role)
	assert.False(t, stored.PendingRoleSelection)

	profileRole, err := f.profiles.GetRole(ctx, "mock-user-1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDoctor, profileRole)

	_, err = f.svc.SelectRole(ctx, login.Session.ID, domainauth.RolePatient)
	require.ErrorIs(t, err, ErrRoleAlreadyAssigned)
}

func TestAuthService_SelectRole_ProfileStoreFailureKeepsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiles := portmocks.NewMockProfileStore(ctrl)
	profiles.EXPECT().GetRole(gomock.Any(), "mock-user-1").Return(domainauth.RoleNone, nil)
	profiles.EXPECT().SetRole(gomock.Any(), "mock-user-1", domainauth.RolePatient).Return(errors.New("db down"))

	sessions := mocks.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Provider:   mocks.NewMockAuthProvider(),
		Sessions:   sessions,
		Roles:      mocks.FixedRole(domainauth.RoleNone),
		Profiles:   profiles,
		SessionTTL: time.Hour,
		Now:        testutil.FixedTimeFunc(fixedNow),
	})
	ctx := context.Background()

	login, err := svc.CompleteLogin(ctx, validLogin())
	require.NoError(t, err)

	_, err = svc.SelectRole(ctx, login.Session.ID, domainauth.RolePatient)
	require.ErrorContains(t, err, "store profile role")

	stored, err := sessions.Get(ctx, login.Session.ID)
	require.NoError(t, err)
	assert.True(t, stored.PendingRoleSelection)
	assert.Equal(t, domainauth.RoleNone, stored.Role)
}

func TestAuthService_SelectRole_Rejections(t *testing.T) {
	f := newAuthFixture(t, mocks.FixedRole(domainauth.RoleNone))
	ctx := context.Background()
	login, err := f.svc.CompleteLogin(ctx, validLogin())
	require.NoError(t, err)

	_, err = f.svc.SelectRole(ctx, login.Session.ID, domainauth.RolePlatformAdmin)
	require.ErrorIs(t, err, ErrRoleNotSelectable)

	_, err = f.svc.SelectRole(ctx, login.Session.ID, domainauth.RoleUnknown)
	require.ErrorIs(t, err, ErrRoleNotSelectable)

	_, err = f.svc.SelectRole(ctx, "missing", domainauth.RolePatient)
	require.Error(t, err)

	f.profiles.SetErr = errors.New("db down")
	_, err = f.svc.SelectRole(ctx, login.Session.ID, domainauth.RolePatient)
	require.ErrorContains(t, err, "store profile role")

	stored, err := f.sessions.Get(ctx, login.Session.ID)
	require.NoError(t, err)
	assert.True(t, stored.PendingRoleSelection, "session unchanged when the profile write fails")
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, domainauth.Session{ID: "s1", UserID: "u", ExpiresAt: fixedNow.Add(time.Hour)}))

	require.NoError(t, f.svc.Logout(ctx, "s1"))
	assert.Zero(t, f.sessions.Len())
	require.NoError(t, f.svc.Logout(ctx, ""))

	f.sessions.DeleteErr = errors.New("redis down")
	require.ErrorContains(t, f.svc.Logout(ctx, "s1"), "delete session")
}
