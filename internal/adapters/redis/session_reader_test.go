package redis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/sessioncookie"
	"github.com/medportal/portalgate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithSession(id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "https://doctors.example.com/dashboard", nil)
	if id != "" {
		r.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: id})
	}
	return r
}

func TestSessionReader_NoCookieIsAnonymous(t *testing.T) {
	client, _ := testutil.SetupMiniRedis(t)
	reader, err := NewSessionReader(SessionReaderConfig{Store: NewSessionStore(client)})
	require.NoError(t, err)

	got, err := reader.Read(requestWithSession(""))
	require.NoError(t, err)
	assert.False(t, got.Session.Authenticated)
	assert.Empty(t, got.Refreshed)
}

func TestSessionReader_UnknownSessionIsAnonymous(t *testing.T) {
	client, _ := testutil.SetupMiniRedis(t)
	reader, err := NewSessionReader(SessionReaderConfig{Store: NewSessionStore(client)})
	require.NoError(t, err)

	got, err := reader.Read(requestWithSession("missing"))
	require.NoError(t, err)
	assert.False(t, got.Session.Authenticated)
}

func TestSessionReader_ReadsStoredSession(t *testing.T) {
	client, _ := testutil.SetupMiniRedis(t)
	store := NewSessionStore(client)
	require.NoError(t, store.Save(context.Background(), domainauth.Session{
		ID:        "s1",
		UserID:    "doc-1",
		Role:      domainauth.RoleDoctor,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	reader, err := NewSessionReader(SessionReaderConfig{
		Store:         store,
		TTL:           8 * time.Hour,
		RefreshWindow: 10 * time.Minute,
	})
	require.NoError(t, err)

	got, err := reader.Read(requestWithSession("s1"))
	require.NoError(t, err)
	assert.True(t, got.Session.Authenticated)
	assert.Equal(t, "doc-1", got.Session.UserID)
	assert.Equal(t, domainauth.RoleDoctor, got.Session.Role)
	assert.Empty(t, got.Refreshed, "session far from expiry is not refreshed")
}

func TestSessionReader_NormalizesGarbledRole(t *testing.T) {
	client, _ := testutil.SetupMiniRedis(t)
	store := NewSessionStore(client)
	require.NoError(t, store.Save(context.Background(), domainauth.Session{
		ID:        "s1",
		UserID:    "u-1",
		Role:      domainauth.Role("Chief Surgeon"),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	reader, err := NewSessionReader(SessionReaderConfig{Store: store})
	require.NoError(t, err)

	got, err := reader.Read(requestWithSession("s1"))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUnknown, got.Session.Role)
}

func TestSessionReader_SlidingRefresh(t *testing.T) {
	client, _ := testutil.SetupMiniRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.Session{
		ID:        "s1",
		UserID:    "pat-1",
		Role:      domainauth.RolePatient,
		ExpiresAt: time.Now().Add(2 * time.Minute),
	}))

	reader, err := NewSessionReader(SessionReaderConfig{
		Store:         store,
		CookieDomain:  ".example.com",
		TTL:           time.Hour,
		RefreshWindow: 10 * time.Minute,
	})
	require.NoError(t, err)

	got, err := reader.Read(requestWithSession("s1"))
	require.NoError(t, err)
	require.Len(t, got.Refreshed, 1)
	assert.Equal(t, sessioncookie.Name, got.Refreshed[0].Name)
	assert.Equal(t, "s1", got.Refreshed[0].Value)
	assert.Equal(t, ".example.com", got.Refreshed[0].Domain)

	stored, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.ExpiresAt, 5*time.Second)
}

func TestSessionReader_StoreFailureIsError(t *testing.T) {
	client, mr := testutil.SetupMiniRedis(t)
	reader, err := NewSessionReader(SessionReaderConfig{Store: NewSessionStore(client)})
	require.NoError(t, err)
	mr.Close()

	_, err = reader.Read(requestWithSession("s1"))
	require.Error(t, err)
}

func TestNewSessionReaderRequiresStore(t *testing.T) {
	_, err := NewSessionReader(SessionReaderConfig{})
	require.Error(t, err)
}

// gatedStore blocks Get until release is closed or the load context ends.
type gatedStore struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	rec     domainauth.Session
}

func (g *gatedStore) Save(context.Context, domainauth.Session) error { return nil }
func (g *gatedStore) Delete(context.Context, string) error           { return nil }

func (g *gatedStore) Get(ctx context.Context, _ string) (domainauth.Session, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.rec, nil
	case <-ctx.Done():
		return domainauth.Session{}, ctx.Err()
	}
}

func TestSessionReader_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store := &gatedStore{
		started: make(chan struct{}),
		release: make(chan struct{}),
		rec: domainauth.Session{
			ID:        "s1",
			UserID:    "pat-1",
			Role:      domainauth.RolePatient,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	reader, err := NewSessionReader(SessionReaderConfig{Store: store, LoadTimeout: 5 * time.Second})
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, readErr := reader.Read(requestWithSession("s1").WithContext(ctxA))
		errA <- readErr
	}()
	<-store.started

	type readResult struct {
		role domainauth.Role
		err  error
	}
	resB := make(chan readResult, 1)
	go func() {
		got, readErr := reader.Read(requestWithSession("s1"))
		resB <- readResult{role: got.Session.Role, err: readErr}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(store.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, domainauth.RolePatient, b.role)
}
