// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

const validSecret = "test-secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OASIS_SESSION_SECRET", validSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/oasis.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/oasis.db")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("JWTTTL = %v, want 24h", cfg.JWTTTL)
	}
	if len(cfg.SuperAdminEmails) != 0 {
		t.Errorf("SuperAdminEmails = %v, want empty", cfg.SuperAdminEmails)
	}
	if cfg.TokenSecret() != validSecret {
		t.Error("TokenSecret should fall back to the session secret")
	}
	if cfg.SMTPEnabled() || cfg.UseRedisCache() || cfg.HCaptchaEnabled() || cfg.GeoIPEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_SuperAdminEmails(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OASIS_SESSION_SECRET", validSecret)
	setEnv(t, "OASIS_SUPERADMIN_EMAILS", " Owner@Example.com ,,ops@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []string{"owner@example.com", "ops@example.com"}
	if len(cfg.SuperAdminEmails) != len(want) {
		t.Fatalf("SuperAdminEmails = %v, want %v", cfg.SuperAdminEmails, want)
	}
	for i := range want {
		if cfg.SuperAdminEmails[i] != want[i] {
			t.Errorf("SuperAdminEmails[%d] = %q, want %q", i, cfg.SuperAdminEmails[i], want[i])
		}
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without OASIS_SESSION_SECRET")
	}
}

func TestLoad_SessionSecretTooShort(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OASIS_SESSION_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject a short secret")
	}
}

func TestLoad_WeakSecretRejected(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OASIS_SESSION_SECRET", knownWeakSecrets[0])

	if _, err := Load(); err == nil {
		t.Error("Load() should reject a known default secret")
	}
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OASIS_SESSION_SECRET", validSecret)
	setEnv(t, "OASIS_JWT_SECRET", "tiny")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject a short JWT secret")
	}
}

func TestConfig_ServerAddr(t *testing.T) {
	cfg := Config{ServerHost: "0.0.0.0", ServerPort: 3000}
	if got := cfg.ServerAddr(); got != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", got, "0.0.0.0:3000")
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcABC123", true},
		{"abc-123-xyz", true},
		{"ABCDEF", false},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}

func TestLoadCLI_NoSecretNeeded(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OASIS_DB_PATH", "/tmp/oasis-cli.db")
	setEnv(t, "OASIS_SUPERADMIN_EMAILS", "Root@Example.com")

	cfg, err := LoadCLI()
	if err != nil {
		t.Fatalf("LoadCLI() error: %v", err)
	}
	if cfg.DBPath != "/tmp/oasis-cli.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/oasis-cli.db")
	}
	if len(cfg.SuperAdminEmails) != 1 || cfg.SuperAdminEmails[0] != "root@example.com" {
		t.Errorf("SuperAdminEmails = %v, want [root@example.com]", cfg.SuperAdminEmails)
	}
}
