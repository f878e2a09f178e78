// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the server configuration from OASIS_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example secrets that must never reach production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"OASIS_DB_PATH" envDefault:"./data/oasis.db"`
	SessionSecret string `env:"OASIS_SESSION_SECRET,required"`
	ServerHost    string `env:"OASIS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"OASIS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"OASIS_ENV" envDefault:"development"`
	LogLevel      string `env:"OASIS_LOG_LEVEL" envDefault:"info"`

	// Public address used in sitemap.xml; empty derives it from the request
	SiteURL string `env:"OASIS_SITE_URL"`
	// Block all crawlers, for staging deployments
	SEODisallowAll bool `env:"OASIS_SEO_DISALLOW_ALL"`

	// Uploaded profile photos
	UploadsDir string `env:"OASIS_UPLOADS_DIR" envDefault:"./uploads"`
	UploadsURL string `env:"OASIS_UPLOADS_URL" envDefault:"/uploads"`

	// Photo storage backend: local (UploadsDir) or s3.
	StorageType string `env:"OASIS_STORAGE_TYPE" envDefault:"local"`
	S3Bucket    string `env:"OASIS_S3_BUCKET"`
	S3Region    string `env:"OASIS_S3_REGION"`
	S3Endpoint  string `env:"OASIS_S3_ENDPOINT"`
	S3AccessKey string `env:"OASIS_S3_ACCESS_KEY"`
	S3SecretKey string `env:"OASIS_S3_SECRET_KEY"`
	S3PublicURL string `env:"OASIS_S3_PUBLIC_URL"`

	// Accounts that always resolve to admin, in addition to the
	// per-account superadmin flag.
	SuperAdminEmails []string `env:"OASIS_SUPERADMIN_EMAILS" envSeparator:","`

	// API tokens; JWTSecret falls back to SessionSecret when empty.
	JWTSecret string        `env:"OASIS_JWT_SECRET"`
	JWTTTL    time.Duration `env:"OASIS_JWT_TTL" envDefault:"24h"`

	// Cache configuration
	RedisURL     string `env:"OASIS_REDIS_URL"`
	CachePrefix  string `env:"OASIS_CACHE_PREFIX" envDefault:"oasis:"`
	CacheTTL     int    `env:"OASIS_CACHE_TTL" envDefault:"300"`
	CacheMaxSize int    `env:"OASIS_CACHE_MAX_SIZE" envDefault:"10000"`

	// Outgoing mail for message replies. Empty host logs instead of sending.
	SMTPHost     string `env:"OASIS_SMTP_HOST"`
	SMTPPort     int    `env:"OASIS_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"OASIS_SMTP_USER"`
	SMTPPassword string `env:"OASIS_SMTP_PASSWORD"`
	SMTPFrom     string `env:"OASIS_SMTP_FROM" envDefault:"no-reply@oasis.local"`

	// hCaptcha for anonymous message forms
	HCaptchaSiteKey   string `env:"OASIS_HCAPTCHA_SITE_KEY"`
	HCaptchaSecretKey string `env:"OASIS_HCAPTCHA_SECRET_KEY"`

	// GeoIP configuration
	GeoIPDBPath string `env:"OASIS_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb

	// Housekeeping
	EventRetentionDays int `env:"OASIS_EVENT_RETENTION_DAYS" envDefault:"90"`

	// Message intake rate limit per IP
	MessageRateLimit float64 `env:"OASIS_MESSAGE_RATE_LIMIT" envDefault:"0.05"` // tokens per second
	MessageRateBurst int     `env:"OASIS_MESSAGE_RATE_BURST" envDefault:"3"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// HCaptchaEnabled returns true if hCaptcha is configured.
func (c Config) HCaptchaEnabled() bool {
	return c.HCaptchaSiteKey != "" && c.HCaptchaSecretKey != ""
}

// GeoIPEnabled returns true if a GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// SMTPEnabled returns true if outgoing mail is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// TokenSecret returns the key used to sign API tokens.
func (c Config) TokenSecret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return c.SessionSecret
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("OASIS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("OASIS_SESSION_SECRET is a known default value and must not be used")
		}
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("OASIS_JWT_SECRET must be at least %d bytes long", MinSessionSecretLength)
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("OASIS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.StorageType != "local" && cfg.StorageType != "s3" {
		return nil, fmt.Errorf("OASIS_STORAGE_TYPE must be local or s3, got %q", cfg.StorageType)
	}
	if cfg.StorageType == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("OASIS_S3_BUCKET is required when OASIS_STORAGE_TYPE=s3")
	}

	cfg.SuperAdminEmails = normalizeEmails(cfg.SuperAdminEmails)

	return cfg, nil
}

// CLIConfig is the part of the configuration oasisctl needs. It does not
// require the session secret.
type CLIConfig struct {
	DBPath           string   `env:"OASIS_DB_PATH" envDefault:"./data/oasis.db"`
	SuperAdminEmails []string `env:"OASIS_SUPERADMIN_EMAILS" envSeparator:","`
}

// LoadCLI parses the environment for oasisctl.
func LoadCLI() (*CLIConfig, error) {
	cfg := &CLIConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.SuperAdminEmails = normalizeEmails(cfg.SuperAdminEmails)
	return cfg, nil
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// hasMinimumEntropy checks that a secret mixes at least 3 character classes.
func hasMinimumEntropy(s string) bool {
	classes := []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	}
	n := 0
	for _, c := range classes {
		if strings.ContainsAny(s, c) {
			n++
		}
	}
	return n >= 3
}
