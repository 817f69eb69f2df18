package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	serverconfig "github.com/taskmaster/autotasks/internal/infrastructure/config"
)

// Config holds the taskctl client settings
type Config struct {
	APIURL           string                    `mapstructure:"api_url"`
	SessionFile      string                    `mapstructure:"session_file"`
	Timeout          time.Duration             `mapstructure:"timeout"`
	RedirectCooldown time.Duration             `mapstructure:"redirect_cooldown"`
	Logger           serverconfig.LoggerConfig `mapstructure:"logger"`
}

// Dir returns ~/.taskctl
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskctl"
	}
	return filepath.Join(home, ".taskctl")
}

// Load reads ~/.taskctl/config.yaml when present, then TASKCTL_* variables
func Load() (*Config, error) {
	return LoadFile(filepath.Join(Dir(), "config.yaml"))
}

// LoadFile is Load with an explicit config file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_url", "TASKCTL_API_URL")
	_ = v.BindEnv("session_file", "TASKCTL_SESSION_FILE")
	_ = v.BindEnv("timeout", "TASKCTL_TIMEOUT")
	_ = v.BindEnv("redirect_cooldown", "TASKCTL_REDIRECT_COOLDOWN")
	_ = v.BindEnv("logger.level", "TASKCTL_LOG_LEVEL")

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000/api/v1")
	v.SetDefault("session_file", filepath.Join(Dir(), "session.yaml"))
	v.SetDefault("timeout", "15s")
	v.SetDefault("redirect_cooldown", "2s")
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stderr")
}

func (cfg *Config) validate() error {
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute URL", cfg.APIURL)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.SessionFile == "" {
		return fmt.Errorf("session_file is required")
	}
	return nil
}
