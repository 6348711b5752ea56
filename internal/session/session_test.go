package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/api/apitest"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/session"
	"github.com/sadopc/portdesk/internal/store"
)

func setup(t *testing.T, opts ...session.Option) (*session.Manager, *apitest.Server, *store.Store) {
	t.Helper()
	srv := apitest.New(t)
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]session.Option{session.WithAPIURL(srv.URL)}, opts...)
	m := session.New(st, opts...)
	m.Bind(api.New(srv.URL, api.WithTokenSource(m)))
	return m, srv, st
}

func TestLoginEstablishesSession(t *testing.T) {
	m, _, st := setup(t)

	_, ok := m.Current()
	assert.False(t, ok)
	assert.Equal(t, nav.RoleClient, m.Role())
	assert.Empty(t, m.Token())

	sess, err := m.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password)
	require.NoError(t, err)
	assert.Equal(t, nav.RoleAdmin, sess.Role)
	assert.Equal(t, "Ana Admin", sess.DisplayName)
	assert.NotEmpty(t, m.Token())

	saved, err := st.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, m.Token(), saved.Token)
}

func TestLoginValidatesLocally(t *testing.T) {
	m, srv, _ := setup(t)
	_, err := m.Login(context.Background(), "not-an-email", "x")
	assert.Error(t, err)
	_, err = m.Login(context.Background(), "a@b.co", "")
	assert.Error(t, err)
	assert.Zero(t, srv.Count("", "/api/auth/login"))
}

func TestLoginRejected(t *testing.T) {
	m, _, _ := setup(t)
	_, err := m.Login(context.Background(), apitest.Admin.Email, "wrong")
	assert.True(t, api.IsUnauthorized(err))
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestExpiryIsEarlierOfTTLAndToken(t *testing.T) {
	m, srv, _ := setup(t, session.WithTTL(12*time.Hour))
	srv.SetTokenTTL(time.Hour)

	sess, err := m.Login(context.Background(), apitest.Employee.Email, apitest.Employee.Password)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestSessionExpires(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	m, _, _ := setup(t, session.WithTTL(time.Minute), session.WithClock(func() time.Time { return clock() }))

	_, err := m.Login(context.Background(), apitest.Employee.Email, apitest.Employee.Password)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, ok := m.Current()
	assert.False(t, ok)
	assert.Empty(t, m.Token())
}

func TestRestore(t *testing.T) {
	m, srv, st := setup(t)
	_, err := m.Login(context.Background(), apitest.Employee.Email, apitest.Employee.Password)
	require.NoError(t, err)

	// A fresh manager over the same store picks the session up.
	m2 := session.New(st, session.WithAPIURL(srv.URL))
	m2.Bind(api.New(srv.URL, api.WithTokenSource(m2)))
	sess, err := m2.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nav.RoleEmployee, sess.Role)
	assert.Equal(t, 1, srv.Count("GET", "/api/auth/verify-token"))
}

func TestRestoreVerifyFailureLeavesNoSession(t *testing.T) {
	m, srv, st := setup(t)
	_, err := m.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password)
	require.NoError(t, err)

	m2 := session.New(st, session.WithAPIURL(srv.URL))
	m2.Bind(api.New(srv.URL, api.WithTokenSource(m2)))
	srv.Fail("/api/auth/verify-token", 500, "down", nil)

	_, err = m2.Restore(context.Background())
	require.Error(t, err)
	_, ok := m2.Current()
	assert.False(t, ok)
	assert.Empty(t, m2.Token())
	assert.Equal(t, nav.RoleClient, m2.Role())

	// The saved row is kept and a later attempt succeeds.
	srv.ClearFailures()
	sess, err := m2.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nav.RoleAdmin, sess.Role)
}

func TestRestoreEmptyStore(t *testing.T) {
	m, _, _ := setup(t)
	_, err := m.Restore(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestRestoreExpiredClearsRow(t *testing.T) {
	m, _, st := setup(t)
	require.NoError(t, st.SaveSession(store.SavedSession{
		Token: "x", UserJSON: `{}`, ExpiresAt: time.Now().Add(-time.Minute),
	}))
	_, err := m.Restore(context.Background())
	assert.ErrorIs(t, err, session.ErrExpired)
	_, err = st.LoadSession()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestoreForeignBackend(t *testing.T) {
	m, _, st := setup(t)
	require.NoError(t, st.SaveSession(store.SavedSession{
		Token: "x", UserJSON: `{}`, APIURL: "http://elsewhere", ExpiresAt: time.Now().Add(time.Hour),
	}))
	_, err := m.Restore(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestRestoreRejectedToken(t *testing.T) {
	m, srv, st := setup(t)
	require.NoError(t, st.SaveSession(store.SavedSession{
		Token: "garbage", UserJSON: `{"id":"1","role":"admin"}`, APIURL: srv.URL, ExpiresAt: time.Now().Add(time.Hour),
	}))
	_, err := m.Restore(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	_, ok := m.Current()
	assert.False(t, ok)
	_, err = st.LoadSession()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	m, srv, st := setup(t)
	_, err := m.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password)
	require.NoError(t, err)

	srv.Fail("/api/auth/logout", 500, "boom", nil)
	require.NoError(t, m.Logout(context.Background()))

	_, ok := m.Current()
	assert.False(t, ok)
	_, err = st.LoadSession()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegister(t *testing.T) {
	m, srv, _ := setup(t)
	_, err := m.Register(context.Background(), "Nu", "nu@puerto.co", "123456")
	assert.Error(t, err)
	_, err = m.Register(context.Background(), "Nuevo", "nu@puerto.co", "123")
	assert.Error(t, err)
	assert.Zero(t, srv.Count("", "/api/auth/register"))

	sess, err := m.Register(context.Background(), "Nuevo", "nu@puerto.co", "123456")
	require.NoError(t, err)
	assert.Equal(t, nav.RoleClient, sess.Role)
}

func TestChangePasswordLocalChecks(t *testing.T) {
	m, srv, _ := setup(t)
	ctx := context.Background()
	assert.ErrorIs(t, m.ChangePassword(ctx, "a", "b", "b"), session.ErrNotAuthenticated)

	_, err := m.Login(ctx, apitest.Client.Email, apitest.Client.Password)
	require.NoError(t, err)

	assert.Error(t, m.ChangePassword(ctx, apitest.Client.Password, "12345", "12345"))
	assert.Error(t, m.ChangePassword(ctx, apitest.Client.Password, "123456", "654321"))
	assert.Zero(t, srv.Count("", "/api/auth/change-password"))

	require.NoError(t, m.ChangePassword(ctx, apitest.Client.Password, "123456", "123456"))
}

func TestUpdateProfile(t *testing.T) {
	m, _, st := setup(t)
	ctx := context.Background()
	_, err := m.Login(ctx, apitest.Client.Email, apitest.Client.Password)
	require.NoError(t, err)

	sess, err := m.UpdateProfile(ctx, "Carlos Nuevo", "carlos.nuevo@puerto.co", "")
	require.NoError(t, err)
	assert.Equal(t, "Carlos Nuevo", sess.DisplayName)
	assert.Equal(t, nav.RoleClient, sess.Role)

	saved, err := st.LoadSession()
	require.NoError(t, err)
	assert.Contains(t, saved.UserJSON, "Carlos Nuevo")
}

func TestConcurrentReaders(t *testing.T) {
	m, _, _ := setup(t)
	_, err := m.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Role()
			_ = m.Token()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Logout(context.Background())
	}()
	wg.Wait()
	_, ok := m.Current()
	assert.False(t, ok)
}
