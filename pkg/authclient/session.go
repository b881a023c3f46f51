package authclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Session is the profile of the signed-in user. Credentials are never part
// of it; they stay in the transport.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == RoleAdmin }

type SessionState int

const (
	Anonymous SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

type credentialResetter interface {
	ResetCredentials()
}

// Manager owns the current session and the coordinator that keeps it alive.
type Manager struct {
	raw     Transport
	auth    *Client
	coord   *Coordinator
	profile *Client
	log     *slog.Logger

	mu      sync.RWMutex
	session *Session
}

// NewManager wraps raw with a Coordinator whose refresh calls the refresh
// endpoint over raw. Options are passed to the coordinator; hooks given there
// run after the manager has updated its own state.
func NewManager(raw Transport, opts ...Option) *Manager {
	m := &Manager{
		raw:  raw,
		auth: NewClient(raw),
		log:  logging.Discard(),
	}

	base := []Option{
		WithOnRefreshed(m.replaceSession),
		WithOnRefreshFailed(m.terminate),
	}
	m.coord = Middleware(raw, m.auth.Refresh, append(base, opts...)...)
	m.log = m.coord.log
	m.profile = NewClient(m.coord)
	return m
}

// Transport is the coordinated transport every application request should use.
func (m *Manager) Transport() Transport { return m.coord }

func (m *Manager) Coordinator() *Coordinator { return m.coord }

func (m *Manager) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	s, err := m.auth.Signup(ctx, in)
	if err != nil {
		return nil, err
	}
	m.setSession(s)
	m.log.Info("signed_up", "user_id", s.ID)
	return s, nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	s, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.setSession(s)
	m.log.Info("logged_in", "user_id", s.ID)
	return s, nil
}

// Logout clears the session only when the server accepted the logout.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.auth.Logout(ctx); err != nil {
		m.log.Warn("logout_failed", "error", err)
		return err
	}
	m.setSession(nil)
	m.log.Info("logged_out")
	return nil
}

// CheckAuth loads the profile through the coordinated transport, so an
// expired access credential is refreshed first. Any failure leaves the
// manager anonymous.
func (m *Manager) CheckAuth(ctx context.Context) (*Session, error) {
	s, err := m.profile.Profile(ctx)
	if err != nil {
		m.setSession(nil)
		return nil, err
	}
	m.setSession(s)
	return s, nil
}

func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *Manager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Anonymous
	}
	return Authenticated
}

func (m *Manager) Close() {
	m.coord.Close()
}

func (m *Manager) setSession(s *Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

func (m *Manager) replaceSession(s *Session) {
	m.setSession(s)
}

func (m *Manager) terminate(err error) {
	m.setSession(nil)
	if r, ok := m.raw.(credentialResetter); ok {
		r.ResetCredentials()
	}
	m.log.Warn("session_terminated", "error", err)
}
