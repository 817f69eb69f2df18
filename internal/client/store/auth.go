package store

import (
	"context"
	"errors"
	"net/http"

	"github.com/taskmaster/autotasks/internal/client/session"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// AuthStore holds the signed-in user and persists it with the session cookies
type AuthStore struct {
	status

	client   SessionClient
	sessions session.Store
	logger   *logger.Logger

	user          *entities.User
	authenticated bool
}

func NewAuthStore(client SessionClient, sessions session.Store, appLogger *logger.Logger) *AuthStore {
	return &AuthStore{
		client:   client,
		sessions: sessions,
		logger:   appLogger.WithComponent("auth-store"),
	}
}

// User returns the signed-in user, or nil
func (s *AuthStore) User() *entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Restore loads the persisted session into the store and the cookie jar
func (s *AuthStore) Restore() error {
	sess, err := s.sessions.Load()
	if err != nil {
		return err
	}

	s.client.RestoreCookies(sess.HTTPCookies())

	s.mu.Lock()
	s.user = sess.User
	s.authenticated = sess.Authenticated
	s.mu.Unlock()
	return nil
}

// Login signs in with a username or email
func (s *AuthStore) Login(ctx context.Context, identifier, password string) error {
	s.begin()

	var resp ports.AuthResponse
	_, err := s.client.Post(ctx, "/auth/login", ports.LoginRequest{
		UsernameOrEmail: identifier,
		Password:        password,
	}, &resp)
	if err != nil {
		return s.end(err)
	}
	if resp.User == nil {
		return s.end(errors.New("login response did not include a user"))
	}

	s.setUser(resp.User)
	s.logger.Infow("Logged in", "user_id", resp.User.ID, "username", resp.User.Username)
	return s.end(s.persist())
}

// Register creates the account and then signs in with it
func (s *AuthStore) Register(ctx context.Context, req ports.RegisterRequest) error {
	s.begin()

	var user entities.User
	if _, err := s.client.Post(ctx, "/auth/register", req, &user); err != nil {
		return s.end(err)
	}
	s.end(nil)

	s.logger.Infow("Registered", "user_id", user.ID, "username", user.Username)
	return s.Login(ctx, req.Username, req.Password)
}

// Logout ends the server session; local state is cleared even if the call fails
func (s *AuthStore) Logout(ctx context.Context) error {
	s.begin()

	_, err := s.client.Post(ctx, "/auth/logout", nil, nil)
	if err != nil {
		s.logger.Warnw("Logout request failed", "error", err)
	}

	s.Expire()
	return s.end(err)
}

// CheckAuth asks the server who the current session belongs to. Any failure
// clears the cached session.
func (s *AuthStore) CheckAuth(ctx context.Context) error {
	s.begin()

	var user entities.User
	if _, err := s.client.Get(ctx, "/auth/me", nil, &user); err != nil {
		s.Expire()
		return s.end(err)
	}

	s.setUser(&user)
	return s.end(s.persist())
}

// Expire drops the user, the cookies and the persisted session
func (s *AuthStore) Expire() {
	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()

	s.client.ClearSession()
	if err := s.sessions.Clear(); err != nil {
		s.logger.Warnw("Failed to clear session", "error", err)
	}
}

// SaveCookies persists cookies rotated by the server, such as after a refresh
func (s *AuthStore) SaveCookies(cookies []*http.Cookie) {
	if !s.IsAuthenticated() {
		return
	}
	sess, err := s.sessions.Load()
	if err != nil {
		s.logger.Warnw("Failed to load session", "error", err)
		return
	}
	sess.FromHTTPCookies(cookies)
	if err := s.sessions.Save(sess); err != nil {
		s.logger.Warnw("Failed to save session", "error", err)
	}
}

func (s *AuthStore) setUser(user *entities.User) {
	s.mu.Lock()
	s.user = user
	s.authenticated = user != nil
	s.mu.Unlock()
}

func (s *AuthStore) persist() error {
	s.mu.RLock()
	sess := &session.Session{User: s.user, Authenticated: s.authenticated}
	s.mu.RUnlock()

	sess.FromHTTPCookies(s.client.Cookies())
	return s.sessions.Save(sess)
}
