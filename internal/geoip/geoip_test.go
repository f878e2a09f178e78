// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"path/filepath"
	"testing"
)

func TestOpenWithoutPath(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if l.Enabled() {
		t.Error("Enabled() = true without a database")
	}
	if got := l.Country("8.8.8.8"); got != "" {
		t.Errorf("Country() = %q, want empty", got)
	}
	if err := l.Reload(); err != nil {
		t.Errorf("Reload() = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("Open(missing) should fail")
	}
	if l == nil || l.Enabled() {
		t.Error("a failed Open should still return a disabled Lookup")
	}
}

func TestNilLookup(t *testing.T) {
	var l *Lookup
	if l.Enabled() {
		t.Error("nil Lookup should be disabled")
	}
	if got := l.Country("8.8.8.8"); got != "" {
		t.Errorf("nil Lookup Country = %q", got)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Lookup Close = %v", err)
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code, lang, want string
	}{
		{"FR", "en", "France"},
		{"fr", "en", "France"},
		{"DE", "fr", "Allemagne"},
		{"EG", "", "Egypt"},
		{"", "en", ""},
		{"Q1", "en", "Q1"},
	}
	for _, tt := range tests {
		if got := CountryName(tt.code, tt.lang); got != tt.want {
			t.Errorf("CountryName(%q, %q) = %q, want %q", tt.code, tt.lang, got, tt.want)
		}
	}
}

func TestValidCountry(t *testing.T) {
	for _, code := range []string{"FR", "ma", "EG"} {
		if !ValidCountry(code) {
			t.Errorf("ValidCountry(%q) = false", code)
		}
	}
	for _, code := range []string{"", "F", "FRA", "ZZ", "150"} {
		if ValidCountry(code) {
			t.Errorf("ValidCountry(%q) = true", code)
		}
	}
}
