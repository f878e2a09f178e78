// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package validation checks input at the write boundary with
// go-playground/validator and reports failures per field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/model"
)

// Custom tags.
const (
	tagNotBlank = "notblank"
	tagLang     = "lang"
	tagRole     = "role"
	tagMsgType  = "msgtype"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so API clients can map errors to their fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation(tagNotBlank, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(tagLang, func(fl validator.FieldLevel) bool {
		return i18n.IsSupported(fl.Field().String())
	})
	_ = v.RegisterValidation(tagRole, func(fl validator.FieldLevel) bool {
		_, err := model.ParseRole(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(tagMsgType, func(fl validator.FieldLevel) bool {
		_, err := model.ParseMessageType(fl.Field().String())
		return err == nil
	})
	return v
}

// Error maps field names to human readable problems.
type Error struct {
	Fields map[string]string
}

// NewError returns an empty Error ready for Add.
func NewError() *Error {
	return &Error{Fields: make(map[string]string)}
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem for field, keeping the first one reported.
func (e *Error) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field failed.
func (e *Error) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it has errors and nil otherwise.
func (e *Error) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Struct validates s against its `validate` tags. The result is nil or an
// *Error.
func Struct(s any) error {
	verr := NewError()
	Collect(verr, s)
	return verr.OrNil()
}

// Collect validates s and adds its failures to verr. Non-field errors such as
// a nil argument are recorded under "_".
func Collect(verr *Error, s any) {
	err := validate.Struct(s)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), message(fe))
	}
}

// AsError unwraps an *Error from err.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case tagNotBlank:
		return "cannot be blank"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid e-mail address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url", "http_url":
		return "must be a valid URL"
	case tagLang:
		return "is not a supported language"
	case tagRole:
		return "must be user, moderator or admin"
	case tagMsgType:
		return "must be contact, newsletter or support"
	case "gte", "lte":
		return fmt.Sprintf("is out of range (%s %s)", fe.Tag(), fe.Param())
	}
	return "is invalid"
}
