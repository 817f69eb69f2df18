package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/config"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

func newTestAuthService() (*AuthService, *MockUserRepository, *MockAuthRepository) {
	users := NewMockUserRepository()
	tokens := NewMockAuthRepository()
	cfg := config.JWTConfig{
		Secret:           "test-secret",
		ExpiresIn:        15 * time.Minute,
		RefreshExpiresIn: time.Hour,
		Issuer:           "autotasks-test",
	}
	return NewAuthService(users, tokens, cfg, logger.NewNop()), users, tokens
}

func registerAlice(t *testing.T, s *AuthService) *entities.User {
	t.Helper()
	user, err := s.Register(context.Background(), ports.RegisterRequest{
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestAuthService()

	user := registerAlice(t, s)
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lower-cased", user.Email)
	}
	if user.Role != entities.UserRoleUser || !user.IsActive {
		t.Errorf("Role/IsActive = %s/%v, want user/true", user.Role, user.IsActive)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in clear")
	}

	_, err := s.Register(context.Background(), ports.RegisterRequest{
		Email: "alice@example.com", Username: "other", Password: "correct-horse",
	})
	if !errors.Is(err, entities.ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	_, err = s.Register(context.Background(), ports.RegisterRequest{
		Email: "bob@example.com", Username: "alice", Password: "correct-horse",
	})
	if !errors.Is(err, entities.ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
}

func TestLogin(t *testing.T) {
	s, users, _ := newTestAuthService()
	user := registerAlice(t, s)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{"by username", "alice", "correct-horse", nil},
		{"by email", "ALICE@example.com", "correct-horse", nil},
		{"wrong password", "alice", "nope-nope", entities.ErrInvalidCredential},
		{"unknown user", "mallory", "correct-horse", entities.ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Login(context.Background(), ports.LoginRequest{
				UsernameOrEmail: tt.identifier,
				Password:        tt.password,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if resp.AccessToken == "" || resp.RefreshToken == "" {
				t.Error("Login() did not issue both tokens")
			}
			if resp.User.ID != user.ID {
				t.Errorf("Login() user = %v, want %v", resp.User.ID, user.ID)
			}
		})
	}

	users.users[user.ID].IsActive = false
	_, err := s.Login(context.Background(), ports.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"})
	if !errors.Is(err, entities.ErrInactiveUser) {
		t.Errorf("inactive Login() error = %v, want ErrInactiveUser", err)
	}
}

func TestValidateToken(t *testing.T) {
	s, _, _ := newTestAuthService()
	user := registerAlice(t, s)

	resp, err := s.Login(context.Background(), ports.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := s.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID.String() || claims.Role != entities.UserRoleUser {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := s.ValidateToken(resp.AccessToken + "x"); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("tampered token error = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	s, _, _ := newTestAuthService()
	registerAlice(t, s)
	ctx := context.Background()

	first, err := s.Login(ctx, ports.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	second, err := s.RefreshToken(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	if _, err := s.RefreshToken(ctx, first.RefreshToken); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("reused refresh token error = %v, want ErrUnauthorized", err)
	}
	if _, err := s.RefreshToken(ctx, ""); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("empty refresh token error = %v, want ErrUnauthorized", err)
	}
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	s, _, _ := newTestAuthService()
	user := registerAlice(t, s)
	ctx := context.Background()

	resp, err := s.Login(ctx, ports.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := s.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, err := s.RefreshToken(ctx, resp.RefreshToken); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("RefreshToken() after logout error = %v, want ErrUnauthorized", err)
	}
}
