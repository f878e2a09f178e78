// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n holds the translation dictionaries. A lookup tries the
// requested language, then English, then returns the key itself.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is the fallback for missing keys and unknown languages.
const DefaultLanguage = "en"

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog holds all translations for all supported languages.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
	logger       *slog.Logger
}

var catalog *Catalog

// SupportedLanguages lists the languages with a dictionary, default first.
var SupportedLanguages = []string{"en", "fr", "ar"}

// rtlLanguages are rendered right to left.
var rtlLanguages = map[string]bool{"ar": true}

// Init loads every dictionary from the embedded locales directory.
func Init(logger *slog.Logger) error {
	c := &Catalog{
		translations: make(map[string]map[string]string),
		logger:       logger,
	}

	tags := make([]language.Tag, 0, len(SupportedLanguages))
	for _, lang := range SupportedLanguages {
		tags = append(tags, language.MustParse(lang))
	}
	c.supported = tags
	c.matcher = language.NewMatcher(tags)

	for _, lang := range SupportedLanguages {
		if err := c.loadLanguage(lang); err != nil {
			return fmt.Errorf("failed to load language %s: %w", lang, err)
		}
	}

	catalog = c
	if logger != nil {
		logger.Info("i18n initialized", "languages", SupportedLanguages)
	}
	return nil
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgFile MessageFile
	if err := json.Unmarshal(data, &msgFile); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dict := make(map[string]string, len(msgFile.Messages))
	for _, msg := range msgFile.Messages {
		dict[msg.ID] = msg.Translation
	}
	c.translations[lang] = dict

	return nil
}

// lookup returns the raw translation for key, falling back to the default
// language. ok is false when neither dictionary has the key.
func (c *Catalog) lookup(lang, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if dict, found := c.translations[lang]; found {
		if s, ok := dict[key]; ok {
			return s, true
		}
	}
	if lang != DefaultLanguage {
		if s, ok := c.translations[DefaultLanguage][key]; ok {
			if c.logger != nil {
				c.logger.Debug("missing translation, using default", "key", key, "lang", lang)
			}
			return s, true
		}
	}
	return "", false
}

// T translates key into lang. Missing keys fall back to English and then to
// the key itself. Optional args are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	if catalog == nil {
		return key
	}

	s, ok := catalog.lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

// Dictionary returns lang's dictionary merged over the English one, so every
// English key is present. Unknown languages get the English dictionary.
func Dictionary(lang string) map[string]string {
	out := map[string]string{}
	if catalog == nil {
		return out
	}

	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	maps.Copy(out, catalog.translations[DefaultLanguage])
	if lang != DefaultLanguage {
		maps.Copy(out, catalog.translations[lang])
	}
	return out
}

// MatchLanguage maps an Accept-Language header or language code onto the
// closest supported language.
func MatchLanguage(acceptLang string) string {
	if catalog == nil {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := catalog.matcher.Match(tags...)
	if conf == language.No {
		return DefaultLanguage
	}
	if idx >= 0 && idx < len(catalog.supported) {
		return catalog.supported[idx].String()
	}
	return DefaultLanguage
}

// IsSupported checks if a language code has a dictionary.
func IsSupported(lang string) bool {
	lang = strings.ToLower(lang)
	for _, supported := range SupportedLanguages {
		if supported == lang {
			return true
		}
	}
	return false
}

// Normalize returns lang when supported and DefaultLanguage otherwise.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if IsSupported(lang) {
		return lang
	}
	return DefaultLanguage
}

// Direction returns "rtl" or "ltr" for the html dir attribute.
func Direction(lang string) string {
	if rtlLanguages[lang] {
		return "rtl"
	}
	return "ltr"
}

// TranslationCount returns the number of translations loaded for a language.
func TranslationCount(lang string) int {
	if catalog == nil {
		return 0
	}

	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	return len(catalog.translations[lang])
}
