// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package captcha verifies hCaptcha tokens submitted with anonymous forms.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultVerifyURL is the hCaptcha siteverify endpoint.
	DefaultVerifyURL = "https://api.hcaptcha.com/siteverify"
	verifyTimeout    = 10 * time.Second

	// FormField is the form field hCaptcha's widget populates.
	FormField = "h-captcha-response"
)

var (
	// ErrMissingResponse is returned when the visitor did not solve the widget.
	ErrMissingResponse = errors.New("captcha: response missing")
	// ErrRejected is returned when hCaptcha rejects the token.
	ErrRejected = errors.New("captcha: verification failed")
)

// Verifier checks captcha tokens.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// verifyResponse is the siteverify payload.
type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// HCaptcha verifies tokens against the hCaptcha API.
type HCaptcha struct {
	siteKey   string
	secretKey string
	verifyURL string
	client    *http.Client
}

// NewHCaptcha creates a verifier. verifyURL may be empty for the public
// endpoint.
func NewHCaptcha(siteKey, secretKey, verifyURL string) *HCaptcha {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &HCaptcha{
		siteKey:   siteKey,
		secretKey: secretKey,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: verifyTimeout},
	}
}

// SiteKey returns the public key rendered into forms.
func (h *HCaptcha) SiteKey() string {
	return h.siteKey
}

// Verify implements Verifier.
func (h *HCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingResponse
	}

	data := url.Values{}
	data.Set("secret", h.secretKey)
	data.Set("response", token)
	data.Set("sitekey", h.siteKey)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("building captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha verification returned HTTP %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse captcha response: %w", err)
	}
	if !result.Success {
		slog.Warn("captcha verification failed", "error_codes", result.ErrorCodes, "remote_ip", remoteIP)
		return ErrRejected
	}
	return nil
}

// Disabled accepts every token. It is used when no keys are configured.
type Disabled struct{}

// Verify implements Verifier.
func (Disabled) Verify(context.Context, string, string) error {
	return nil
}

// New returns an HCaptcha verifier when both keys are set, otherwise
// Disabled.
func New(siteKey, secretKey string) Verifier {
	if siteKey == "" || secretKey == "" {
		return Disabled{}
	}
	return NewHCaptcha(siteKey, secretKey, "")
}
