// Package session owns the authenticated identity. It is the single writer of
// the current session; every other package reads it through Current or Role.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/store"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrExpired          = errors.New("session expired")
)

// MinPasswordLength applies to registration and password changes.
const MinPasswordLength = 6

// Session is the authenticated identity.
type Session struct {
	UserID      string
	DisplayName string
	Email       string
	Role        nav.Role
	ExpiresAt   time.Time
}

// Backend is the subset of the API client the manager needs.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (api.AuthResult, error)
	Register(ctx context.Context, in api.RegisterInput) (api.AuthResult, error)
	VerifyToken(ctx context.Context) (api.User, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, in api.ProfileInput) (api.User, error)
	ChangePassword(ctx context.Context, current, next string) error
}

// Persister stores the session between runs.
type Persister interface {
	SaveSession(store.SavedSession) error
	LoadSession() (*store.SavedSession, error)
	ClearSession() error
}

type Manager struct {
	mu      sync.RWMutex
	current *Session
	token   string

	backend Backend
	store   Persister
	ttl     time.Duration
	apiURL  string
	logger  logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Manager)

func WithTTL(d time.Duration) Option { return func(m *Manager) { m.ttl = d } }

func WithLogger(l logrus.FieldLogger) Option { return func(m *Manager) { m.logger = l } }

// WithAPIURL tags persisted sessions with the backend they belong to, so a
// token is never replayed against another backend.
func WithAPIURL(u string) Option { return func(m *Manager) { m.apiURL = u } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func New(p Persister, opts ...Option) *Manager {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	m := &Manager{
		store:  p,
		ttl:    12 * time.Hour,
		logger: l,
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Bind sets the backend. It is separate from New because the API client
// takes the manager as its token source.
func (m *Manager) Bind(b Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend = b
}

// Token implements api.TokenSource. It is empty when there is no live
// session.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || !m.now().Before(m.current.ExpiresAt) {
		return ""
	}
	return m.token
}

// Current returns the live session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || !m.now().Before(m.current.ExpiresAt) {
		return Session{}, false
	}
	return *m.current, true
}

// Role returns the current role, or the client role when logged out.
func (m *Manager) Role() nav.Role {
	if s, ok := m.Current(); ok {
		return s.Role
	}
	return nav.RoleClient
}

// Credentials validation mirrors the login form.
func validateCredentials(email, password string) error {
	if !resource.ValidEmail(email) {
		return errors.New("email inválido")
	}
	if password == "" {
		return errors.New("la contraseña es obligatoria")
	}
	return nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	res, err := m.backend.Login(ctx, api.Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return Session{}, err
	}
	return m.establish(res.Token, res.User)
}

// Register creates an account and logs in with it.
func (m *Manager) Register(ctx context.Context, name, email, password string) (Session, error) {
	if len(strings.TrimSpace(name)) < 3 {
		return Session{}, errors.New("el nombre debe tener al menos 3 caracteres")
	}
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	if len(password) < MinPasswordLength {
		return Session{}, errors.Errorf("la contraseña debe tener al menos %d caracteres", MinPasswordLength)
	}
	res, err := m.backend.Register(ctx, api.RegisterInput{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return Session{}, err
	}
	if res.Token == "" {
		return Session{}, ErrNotAuthenticated
	}
	return m.establish(res.Token, res.User)
}

func (m *Manager) establish(token string, u api.User) (Session, error) {
	sess := Session{
		UserID:      u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
		Role:        nav.ParseRole(u.Role),
		ExpiresAt:   m.expiry(token),
	}
	m.mu.Lock()
	m.current = &sess
	m.token = token
	m.mu.Unlock()

	m.persist(token, u, sess.ExpiresAt)
	m.logger.WithFields(logrus.Fields{"user": sess.Email, "role": sess.Role}).Info("session established")
	return sess, nil
}

// expiry is the earlier of now+ttl and the token's own exp claim.
func (m *Manager) expiry(token string) time.Time {
	exp := m.now().Add(m.ttl)
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return exp
	}
	if te, err := claims.GetExpirationTime(); err == nil && te != nil && te.Before(exp) {
		return te.Time
	}
	return exp
}

func (m *Manager) persist(token string, u api.User, exp time.Time) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		m.logger.WithError(err).Warn("encode session user")
		return
	}
	if err := m.store.SaveSession(store.SavedSession{Token: token, UserJSON: string(data), APIURL: m.apiURL, ExpiresAt: exp}); err != nil {
		m.logger.WithError(err).Warn("persist session")
	}
}

// Restore loads a persisted session and confirms it with the backend. A
// missing, expired, foreign or rejected session is cleared and reported as
// ErrNotAuthenticated or ErrExpired.
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	if m.store == nil {
		return Session{}, ErrNotAuthenticated
	}
	saved, err := m.store.LoadSession()
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrNotAuthenticated
	}
	if err != nil {
		return Session{}, err
	}
	if saved.Expired(m.now()) {
		m.clearStored()
		return Session{}, ErrExpired
	}
	if m.apiURL != "" && saved.APIURL != "" && saved.APIURL != m.apiURL {
		m.clearStored()
		return Session{}, ErrNotAuthenticated
	}

	var u api.User
	if err := json.Unmarshal([]byte(saved.UserJSON), &u); err != nil {
		m.clearStored()
		return Session{}, errors.Wrap(err, "decode stored user")
	}
	sess := Session{
		UserID:      u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
		Role:        nav.ParseRole(u.Role),
		ExpiresAt:   saved.ExpiresAt,
	}
	m.mu.Lock()
	m.current = &sess
	m.token = saved.Token
	m.mu.Unlock()

	// The stored row survives a failed check so a later Restore can retry.
	verified, err := m.Verify(ctx)
	if err != nil {
		m.mu.Lock()
		m.current = nil
		m.token = ""
		m.mu.Unlock()
		return Session{}, err
	}
	return verified, nil
}

// Verify re-checks the current token with the backend and refreshes the
// identity. On rejection the session is dropped.
func (m *Manager) Verify(ctx context.Context) (Session, error) {
	cur, ok := m.Current()
	if !ok {
		return Session{}, ErrNotAuthenticated
	}
	u, err := m.backend.VerifyToken(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			m.drop()
			return Session{}, ErrNotAuthenticated
		}
		return Session{}, err
	}

	m.mu.Lock()
	if m.current != nil {
		if u.ID != "" {
			m.current.UserID = u.ID
		}
		if u.Name != "" {
			m.current.DisplayName = u.Name
		}
		if u.Email != "" {
			m.current.Email = u.Email
		}
		if u.Role != "" {
			m.current.Role = nav.ParseRole(u.Role)
		}
		cur = *m.current
	}
	m.mu.Unlock()
	return cur, nil
}

// Logout ends the session locally even if the backend call fails.
func (m *Manager) Logout(ctx context.Context) error {
	if _, ok := m.Current(); ok && m.backend != nil {
		if err := m.backend.Logout(ctx); err != nil {
			m.logger.WithError(err).Warn("backend logout failed")
		}
	}
	m.drop()
	return nil
}

func (m *Manager) drop() {
	m.mu.Lock()
	m.current = nil
	m.token = ""
	m.mu.Unlock()
	m.clearStored()
}

func (m *Manager) clearStored() {
	if m.store == nil {
		return
	}
	if err := m.store.ClearSession(); err != nil {
		m.logger.WithError(err).Warn("clear stored session")
	}
}

// UpdateProfile changes the display name and email of the current user.
func (m *Manager) UpdateProfile(ctx context.Context, name, email, phone string) (Session, error) {
	cur, ok := m.Current()
	if !ok {
		return Session{}, ErrNotAuthenticated
	}
	if len(strings.TrimSpace(name)) < 3 {
		return Session{}, errors.New("el nombre debe tener al menos 3 caracteres")
	}
	if !resource.ValidEmail(email) {
		return Session{}, errors.New("email inválido")
	}
	u, err := m.backend.UpdateProfile(ctx, api.ProfileInput{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Phone: strings.TrimSpace(phone)})
	if err != nil {
		return Session{}, err
	}
	if u.Name == "" {
		u.Name = strings.TrimSpace(name)
	}
	if u.Email == "" {
		u.Email = strings.TrimSpace(email)
	}
	if u.ID == "" {
		u.ID = cur.UserID
	}
	if u.Role == "" {
		u.Role = string(cur.Role)
	}

	m.mu.Lock()
	if m.current != nil {
		m.current.DisplayName = u.Name
		m.current.Email = u.Email
		cur = *m.current
	}
	token := m.token
	m.mu.Unlock()

	m.persist(token, u, cur.ExpiresAt)
	return cur, nil
}

// ChangePassword checks length and confirmation locally before calling the
// backend.
func (m *Manager) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if _, ok := m.Current(); !ok {
		return ErrNotAuthenticated
	}
	if current == "" {
		return errors.New("la contraseña actual es obligatoria")
	}
	if len(next) < MinPasswordLength {
		return errors.Errorf("la nueva contraseña debe tener al menos %d caracteres", MinPasswordLength)
	}
	if next != confirm {
		return errors.New("las contraseñas no coinciden")
	}
	return m.backend.ChangePassword(ctx, current, next)
}
