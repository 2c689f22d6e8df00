package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration, read once at startup.
type Config struct {
	Port         int
	AppEnv       string
	ClientURL    string
	BaseURL      string
	DatabasePath string
	JWTSecret    string
	Mail         MailConfig
}

// MailConfig selects and configures the outbound mail transport.
type MailConfig struct {
	Provider    string // "smtp", "sendgrid" or "log"
	From        string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SendGridKey string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 5000)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("BASE_URL", "http://localhost:5000")
	v.SetDefault("DATABASE_PATH", "./gatehouse.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@gatehouse.local")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SENDGRID_API_KEY", "")

	cfg := &Config{
		Port:         v.GetInt("PORT"),
		AppEnv:       v.GetString("APP_ENV"),
		ClientURL:    v.GetString("CLIENT_URL"),
		BaseURL:      strings.TrimRight(v.GetString("BASE_URL"), "/"),
		DatabasePath: v.GetString("DATABASE_PATH"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		Mail: MailConfig{
			Provider:    v.GetString("MAIL_PROVIDER"),
			From:        v.GetString("MAIL_FROM"),
			SMTPHost:    v.GetString("SMTP_HOST"),
			SMTPPort:    v.GetInt("SMTP_PORT"),
			SMTPUser:    v.GetString("SMTP_USER"),
			SMTPPass:    v.GetString("SMTP_PASS"),
			SendGridKey: v.GetString("SENDGRID_API_KEY"),
		},
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.Mail.Provider {
	case "smtp", "sendgrid", "log":
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.Mail.Provider)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// loadDotEnv populates the environment from a local .env file without
// overriding variables that are already set.
func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:eq])
		value := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
