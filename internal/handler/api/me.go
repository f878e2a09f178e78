// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/store"
)

// ProfileResponse is the caller's own account. Role is the effective role,
// StoredRole what is persisted.
type ProfileResponse struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Role              model.Role `json:"role"`
	StoredRole        string     `json:"stored_role"`
	AcademicLevel     string     `json:"academic_level,omitempty"`
	Country           string     `json:"country,omitempty"`
	Languages         []string   `json:"languages"`
	Badges            []string   `json:"badges"`
	Points            int64      `json:"points"`
	PhotoURL          string     `json:"photo_url,omitempty"`
	PreferredLanguage string     `json:"preferred_language,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) profileResponse(u store.User) ProfileResponse {
	resp := ProfileResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              h.deps.Resolver.Resolve(u),
		StoredRole:        u.Role,
		AcademicLevel:     u.AcademicLevel,
		Country:           u.Country,
		Languages:         splitList(u.Languages),
		Badges:            splitList(u.Badges),
		Points:            u.Points,
		PhotoURL:          u.PhotoUrl,
		PreferredLanguage: u.PreferredLanguage,
		CreatedAt:         u.CreatedAt,
	}
	if u.LastLoginAt.Valid {
		t := u.LastLoginAt.Time
		resp.LastLoginAt = &t
	}
	return resp
}

// GetMe handles GET /api/v1/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.deps.Profiles.Get(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteSuccess(w, h.profileResponse(user), nil)
}

// UpdateMe handles PUT /api/v1/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := h.deps.Profiles.UpdateProfile(r.Context(), middleware.GetUserID(r), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteSuccess(w, h.profileResponse(user), nil)
}

// PasswordRequest is the body of PUT /me/password.
type PasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles PUT /api/v1/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.deps.Profiles.ChangePassword(r.Context(), middleware.GetUserID(r), req.CurrentPassword, req.NewPassword, middleware.ClientIP(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRequest is the body of DELETE /me.
type DeleteRequest struct {
	Password string `json:"password"`
}

// DeleteMe handles DELETE /api/v1/me. The account and its entities are
// removed.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.deps.Profiles.DeleteAccount(r.Context(), middleware.GetUserID(r), req.Password, middleware.ClientIP(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto handles POST /api/v1/me/photo as multipart form data with a
// "photo" file field.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		WriteBadRequest(w, "Invalid multipart body", nil)
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		WriteValidationError(w, map[string]string{"photo": "is required"})
		return
	}
	defer func() { _ = file.Close() }()

	user, err := h.deps.Profiles.UploadPhoto(r.Context(), middleware.GetUserID(r), file)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteSuccess(w, h.profileResponse(user), nil)
}

// MySubmissions handles GET /api/v1/me/submissions: the caller's own
// entities in every status.
func (h *Handler) MySubmissions(w http.ResponseWriter, r *http.Request) {
	entities, err := h.deps.Submissions.ListByAuthor(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteSuccess(w, storeEntitiesToResponse(entities), &Meta{Total: int64(len(entities))})
}
