// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/oasis/internal/auth"
	"github.com/olegiv/oasis/internal/geoip"
	"github.com/olegiv/oasis/internal/imaging"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/storage"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/validation"
)

var (
	// ErrInvalidCredentials is returned when an e-mail and password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an e-mail that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// AcademicLevels lists the accepted academic levels.
var AcademicLevels = []string{"student", "bachelor", "master", "phd", "postdoc", "professor", "other"}

// RegisterInput is a new account request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,notblank,min=2,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Language string `json:"language" validate:"omitempty,lang"`
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	Name              string   `json:"name" validate:"required,notblank,min=2,max=100"`
	AcademicLevel     string   `json:"academic_level" validate:"omitempty,oneof=student bachelor master phd postdoc professor other"`
	Country           string   `json:"country" validate:"omitempty,len=2"`
	Languages         []string `json:"languages" validate:"max=10,dive,notblank,max=40"`
	PreferredLanguage string   `json:"preferred_language" validate:"omitempty,lang"`
}

// ProfilesConfig wires the optional collaborators of Profiles.
type ProfilesConfig struct {
	GeoIP   *geoip.Lookup
	Storage storage.Storage
	Photos  *imaging.Processor
	Roles   *moderation.Roles // guards deleting the last admin
	Events  *EventService
	// Invalidator drops cached listings of the kinds a deleted account
	// had entities in.
	Invalidator moderation.Invalidator
}

// Profiles manages accounts from the account holder's side.
type Profiles struct {
	queries *store.Queries
	cfg     ProfilesConfig
	now     func() time.Time
}

// NewProfiles creates a Profiles service.
func NewProfiles(db *sql.DB, cfg ProfilesConfig) *Profiles {
	if cfg.Photos == nil {
		cfg.Photos = imaging.NewProcessor(0, 0)
	}
	return &Profiles{queries: store.New(db), cfg: cfg, now: time.Now}
}

// Register creates a user account. The country is prefilled from the
// client address when GeoIP is enabled.
func (p *Profiles) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (store.User, error) {
	if err := validation.Struct(in); err != nil {
		return store.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := p.queries.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.User{}, fmt.Errorf("hashing password: %w", err)
	}

	lang := in.Language
	if lang == "" {
		lang = "en"
	}

	now := p.now().UTC()
	user, err := p.queries.CreateUser(ctx, store.CreateUserParams{
		Email:             email,
		PasswordHash:      hash,
		Name:              strings.TrimSpace(in.Name),
		Role:              string(model.RoleUser),
		Country:           p.cfg.GeoIP.Country(meta.IP),
		PreferredLanguage: lang,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return store.User{}, ErrEmailTaken
		}
		return store.User{}, fmt.Errorf("creating account: %w", err)
	}

	slog.Info("account registered", "user_id", user.ID)
	p.logEvent(ctx, model.EventLevelInfo, "account registered", user.ID, meta.IP, map[string]any{"country": user.Country})
	return user, nil
}

// Authenticate checks an e-mail and password and records the login time.
// Hashes made with outdated parameters are upgraded in place.
func (p *Profiles) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	user, err := p.queries.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		// Spend the same hashing time as a real check.
		_, _ = auth.HashPassword(password)
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return store.User{}, ErrInvalidCredentials
	}

	now := p.now().UTC()
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := p.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{PasswordHash: hash, UpdatedAt: now, ID: user.ID}); err != nil {
				slog.Warn("failed to upgrade password hash", "user_id", user.ID, "error", err)
			}
		}
	}
	if err := p.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: now, Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	return user, nil
}

// Get returns the account.
func (p *Profiles) Get(ctx context.Context, userID int64) (store.User, error) {
	u, err := p.queries.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, moderation.ErrAccountNotFound
	}
	return u, err
}

// UpdateProfile replaces the editable profile fields.
func (p *Profiles) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (store.User, error) {
	verr := validation.NewError()
	validation.Collect(verr, in)
	if in.Country != "" && !geoip.ValidCountry(in.Country) {
		verr.Add("country", "is not a known country code")
	}
	if err := verr.OrNil(); err != nil {
		return store.User{}, err
	}

	current, err := p.Get(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	lang := in.PreferredLanguage
	if lang == "" {
		lang = current.PreferredLanguage
	}

	langs := make([]string, 0, len(in.Languages))
	for _, l := range in.Languages {
		langs = append(langs, strings.TrimSpace(l))
	}

	user, err := p.queries.UpdateUserProfile(ctx, store.UpdateUserProfileParams{
		Name:              strings.TrimSpace(in.Name),
		AcademicLevel:     in.AcademicLevel,
		Country:           strings.ToUpper(in.Country),
		Languages:         strings.Join(langs, ","),
		PreferredLanguage: lang,
		UpdatedAt:         p.now().UTC(),
		ID:                userID,
	})
	if err != nil {
		return store.User{}, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

// ChangePassword re-authenticates with current before storing next.
func (p *Profiles) ChangePassword(ctx context.Context, userID int64, current, next, ip string) error {
	user, err := p.reauthenticate(ctx, userID, current)
	if err != nil {
		return err
	}
	if len(next) < auth.MinPasswordLength {
		verr := validation.NewError()
		verr.Add("new_password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
		return verr
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := p.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    p.now().UTC(),
		ID:           user.ID,
	}); err != nil {
		return err
	}
	p.logEvent(ctx, model.EventLevelInfo, "password changed", user.ID, ip, nil)
	return nil
}

// DeleteAccount re-authenticates and removes the account. The account's
// entities go with it; the stored photo is removed best effort.
func (p *Profiles) DeleteAccount(ctx context.Context, userID int64, password, ip string) error {
	user, err := p.reauthenticate(ctx, userID, password)
	if err != nil {
		return err
	}
	if p.cfg.Roles != nil {
		if err := p.cfg.Roles.CheckRemovable(ctx, user.ID); err != nil {
			return err
		}
	}

	owned, err := p.queries.ListEntitiesByAuthor(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("listing account entities: %w", err)
	}

	if err := p.queries.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	p.removePhoto(ctx, user.PhotoUrl)

	if p.cfg.Invalidator != nil {
		kinds := make(map[model.EntityKind]bool)
		for _, e := range owned {
			kinds[model.EntityKind(e.Kind)] = true
		}
		for _, kind := range model.Kinds {
			if kinds[kind] {
				p.cfg.Invalidator.InvalidateKind(ctx, kind)
			}
		}
	}

	slog.Info("account deleted", "user_id", user.ID)
	if p.cfg.Events != nil {
		_ = p.cfg.Events.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryProfile, "account deleted", nil, ip, "", map[string]any{
			"user_id": user.ID,
		})
	}
	return nil
}

// UploadPhoto normalises the image in r, stores it and points the profile
// at it. The previous photo is removed.
func (p *Profiles) UploadPhoto(ctx context.Context, userID int64, r io.Reader) (store.User, error) {
	if p.cfg.Storage == nil {
		return store.User{}, errors.New("photo storage is not configured")
	}
	user, err := p.Get(ctx, userID)
	if err != nil {
		return store.User{}, err
	}

	photo, err := p.cfg.Photos.NormalizePhoto(r)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) || errors.Is(err, imaging.ErrUnsupportedFormat) {
			verr := validation.NewError()
			verr.Add("photo", photoMessage(err))
			return store.User{}, verr
		}
		return store.User{}, err
	}

	key := fmt.Sprintf("profiles/%d/%s%s", userID, uuid.New().String(), photo.Ext)
	if err := p.cfg.Storage.Save(ctx, key, bytes.NewReader(photo.Data), photo.ContentType); err != nil {
		return store.User{}, fmt.Errorf("storing photo: %w", err)
	}

	url := p.cfg.Storage.URL(key)
	if err := p.queries.UpdateUserPhoto(ctx, store.UpdateUserPhotoParams{
		PhotoUrl:  url,
		UpdatedAt: p.now().UTC(),
		ID:        userID,
	}); err != nil {
		_ = p.cfg.Storage.Delete(ctx, key)
		return store.User{}, err
	}

	p.removePhoto(ctx, user.PhotoUrl)
	p.logEvent(ctx, model.EventLevelInfo, "photo updated", userID, "", map[string]any{"key": key})
	user.PhotoUrl = url
	return user, nil
}

func (p *Profiles) reauthenticate(ctx context.Context, userID int64, password string) (store.User, error) {
	user, err := p.Get(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		p.logEvent(ctx, model.EventLevelWarning, "re-authentication failed", userID, "", nil)
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (p *Profiles) removePhoto(ctx context.Context, url string) {
	if url == "" || p.cfg.Storage == nil {
		return
	}
	key, ok := p.cfg.Storage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := p.cfg.Storage.Delete(ctx, key); err != nil {
		slog.Warn("failed to remove old photo", "key", key, "error", err)
	}
}

func (p *Profiles) logEvent(ctx context.Context, level, message string, userID int64, ip string, md map[string]any) {
	if p.cfg.Events == nil {
		return
	}
	_ = p.cfg.Events.LogProfileEvent(ctx, level, message, userID, ip, md)
}

func photoMessage(err error) string {
	if errors.Is(err, imaging.ErrTooLarge) {
		return "is too large"
	}
	return "must be a JPEG, PNG, GIF or WebP image"
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
