// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage stores uploaded files (profile photos) on the local disk
// or in an S3-compatible bucket and hands out their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Storage is implemented by every backend. Keys are slash separated and
// relative, e.g. "profiles/12/5f3c.jpg".
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the public URL of key.
	URL(key string) string

	// KeyFromURL reverses URL; it returns false for URLs this backend did
	// not produce.
	KeyFromURL(url string) (string, bool)
}

// Backend types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// Config holds storage configuration.
type Config struct {
	Type     string // local or s3
	BasePath string // local root directory
	BaseURL  string // public URL prefix, e.g. /uploads or https://cdn.example.com

	Bucket    string
	Region    string
	Endpoint  string // custom S3 endpoint (R2, MinIO); empty for AWS
	AccessKey string
	SecretKey string
}

// ErrInvalidKey is returned for keys that are empty, absolute or escape the
// storage root.
var ErrInvalidKey = errors.New("storage: invalid key")

// New creates the backend selected by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", TypeLocal:
		return NewLocal(cfg.BasePath, cfg.BaseURL)
	case TypeS3:
		return NewS3(cfg)
	}
	return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key, err := CleanKey(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}
