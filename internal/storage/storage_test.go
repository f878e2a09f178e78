// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"profiles/1/a.jpg", "profiles/1/a.jpg", false},
		{"profiles//1/./a.jpg", "profiles/1/a.jpg", false},
		{"", "", true},
		{"/etc/passwd", "", true},
		{"../secret", "", true},
		{"profiles/../../secret", "", true},
		{"..", "", true},
		{`profiles\..\x`, "", true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("CleanKey(%q) error = %v, want ErrInvalidKey", tt.key, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("CleanKey(%q) = %q, %v, want %q", tt.key, got, err, tt.want)
		}
	}
}

func TestLocalSaveExistsDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root, "/uploads")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()
	key := "profiles/7/photo.jpg"

	if err := s.Save(ctx, key, strings.NewReader("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "profiles", "7", "photo.jpg"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("saved content = %q", data)
	}

	ok, err := s.Exists(ctx, key)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v, want true", ok, err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
	ok, _ = s.Exists(ctx, key)
	if ok {
		t.Error("file still exists after Delete")
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	err = s.Save(context.Background(), "../escape.txt", strings.NewReader("x"), "text/plain")
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Save(../escape.txt) error = %v, want ErrInvalidKey", err)
	}
}

func TestLocalURLRoundTrip(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	url := s.URL("profiles/3/x.png")
	if url != "/uploads/profiles/3/x.png" {
		t.Errorf("URL = %q", url)
	}
	key, ok := s.KeyFromURL(url)
	if !ok || key != "profiles/3/x.png" {
		t.Errorf("KeyFromURL = %q, %v", key, ok)
	}
	if _, ok := s.KeyFromURL("https://gravatar.com/avatar/x"); ok {
		t.Error("foreign URL should not map to a key")
	}
	if _, ok := s.KeyFromURL("/uploads/../etc/passwd"); ok {
		t.Error("traversal URL should not map to a key")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*Local); !ok {
		t.Errorf("New(default) = %T, want *Local", s)
	}

	if _, err := New(Config{Type: TypeS3}); err == nil {
		t.Error("New(s3 without bucket) should fail")
	}
	if _, err := New(Config{Type: "ftp"}); err == nil {
		t.Error("New(ftp) should fail")
	}

	s, err = New(Config{Type: TypeS3, Bucket: "photos", Endpoint: "http://127.0.0.1:9000", BaseURL: "https://cdn.example.com"})
	if err != nil {
		t.Fatalf("New(s3): %v", err)
	}
	if got := s.URL("profiles/1/a.jpg"); got != "https://cdn.example.com/profiles/1/a.jpg" {
		t.Errorf("S3 URL = %q", got)
	}
}
