package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("DB_NAME", "autotasks_test")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("REDIS_DASHBOARD_TTL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Database.Name != "autotasks_test" {
		t.Errorf("Database.Name = %q, want autotasks_test", cfg.Database.Name)
	}
	if cfg.JWT.ExpiresIn != 15*time.Minute {
		t.Errorf("JWT.ExpiresIn = %v, want 15m", cfg.JWT.ExpiresIn)
	}
	if cfg.Redis.DashboardTTL != 2*time.Minute {
		t.Errorf("Redis.DashboardTTL = %v, want 2m", cfg.Redis.DashboardTTL)
	}
}

func TestLoadRejectsDefaultSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "your-super-secret-jwt-key")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with default secret should fail")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			App:      AppConfig{Environment: "development"},
			Server:   ServerConfig{Port: 8000},
			Database: DatabaseConfig{Host: "localhost", Name: "autotasks"},
			JWT:      JWTConfig{Secret: "s", ExpiresIn: time.Minute, RefreshExpiresIn: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshExpiresIn = time.Second }, true},
		{"insecure cookies in production", func(c *Config) { c.App.Environment = "production" }, true},
		{"secure cookies in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.CookieSecure = true
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := SecurityConfig{CORSAllowedOrigins: "http://a.test, http://b.test,,"}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("AllowedOrigins() = %v", got)
	}
}
