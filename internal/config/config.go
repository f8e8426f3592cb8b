package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres | sqlite3
	DSN         string `yaml:"url"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type EmailConfig struct {
	SMTPHost     string        `yaml:"smtp_host"`
	SMTPPort     int           `yaml:"smtp_port"`
	SMTPUser     string        `yaml:"smtp_user"`
	SMTPPassword string        `yaml:"smtp_password"`
	FromEmail    string        `yaml:"from_email"`
	LoginURL     string        `yaml:"login_url"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
}

// Enabled reports whether outbound mail is configured at all.
func (e EmailConfig) Enabled() bool {
	return strings.TrimSpace(e.SMTPHost) != ""
}

type LimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret"`
	TokenTTL            time.Duration `yaml:"token_ttl"` // 0 = tokens never expire
	BcryptCost          int           `yaml:"bcrypt_cost"`
	ExposeResetPassword bool          `yaml:"expose_reset_password"`

	RegisterLimit      LimitConfig `yaml:"register_limit"`
	PasswordResetLimit LimitConfig `yaml:"password_reset_limit"`
	SweepSchedule      string      `yaml:"sweep_schedule"`
}

type BootstrapAdminConfig struct {
	Email    string `yaml:"email"`
	Pseudo   string `yaml:"pseudo"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		Mode            string        `yaml:"mode"` // gin mode: debug | release | test
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		TrustedProxies  []string      `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Email          EmailConfig          `yaml:"email"`
	Auth           AuthConfig           `yaml:"auth"`
	BootstrapAdmin BootstrapAdminConfig `yaml:"bootstrap_admin"`
	Log            LogConfig            `yaml:"log"`
}

// LoadConfig reads the YAML file at path, applies .env / environment
// overrides and fills defaults. A missing file is not an error as long as
// the environment provides the required values.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if cfg.Database.DSN == "" {
		return nil, errors.New("database.url (DATABASE_URL) is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DATABASE_URL", cfg.Database.DSN)
	cfg.Email.SMTPHost = getEnv("SMTP_HOST", cfg.Email.SMTPHost)
	cfg.Email.SMTPPort = getEnvInt("SMTP_PORT", cfg.Email.SMTPPort)
	cfg.Email.SMTPUser = getEnv("SMTP_USER", cfg.Email.SMTPUser)
	cfg.Email.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.Email.SMTPPassword)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = cfg.Email.SMTPUser
	}
	if cfg.Email.LoginURL == "" {
		cfg.Email.LoginURL = "http://localhost:3000"
	}
	if cfg.Email.SendTimeout == 0 {
		cfg.Email.SendTimeout = 10 * time.Second
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Auth.RegisterLimit.MaxAttempts == 0 {
		cfg.Auth.RegisterLimit.MaxAttempts = 5
	}
	if cfg.Auth.RegisterLimit.Window == 0 {
		cfg.Auth.RegisterLimit.Window = 15 * time.Minute
	}
	if cfg.Auth.PasswordResetLimit.MaxAttempts == 0 {
		cfg.Auth.PasswordResetLimit.MaxAttempts = 1
	}
	if cfg.Auth.PasswordResetLimit.Window == 0 {
		cfg.Auth.PasswordResetLimit.Window = 30 * time.Minute
	}
	if cfg.Auth.SweepSchedule == "" {
		cfg.Auth.SweepSchedule = "@every 1h"
	}
	if cfg.BootstrapAdmin.Email == "" {
		cfg.BootstrapAdmin.Email = "admin@pokequest.com"
	}
	if cfg.BootstrapAdmin.Pseudo == "" {
		cfg.BootstrapAdmin.Pseudo = "admin"
	}
	if cfg.BootstrapAdmin.Password == "" {
		cfg.BootstrapAdmin.Password = "admin123"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}
