// Package i18n resolves the backend's user-facing strings (tray tooltips,
// notification copy) for the active language.
// Resolution order: active language → DefaultLang → the key itself.
// A missing translation is never an error; the raw key is returned so an
// untranslated string stays visible instead of failing.
package i18n

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// DefaultLang is the fallback language used when a key or language is not found.
const DefaultLang = "en"

// Placeholder is the single substitution token used in templates.
const Placeholder = "{}"

// Message keys used by the monitor.
const (
	KeyTrayConnected            = "tray.connected"
	KeyTrayDisconnected         = "tray.disconnected"
	KeyTrayShowStatus           = "tray.showStatus"
	KeyTrayQuit                 = "tray.quit"
	KeyTrayInitialTooltip       = "tray.initialTooltip"
	KeyNotificationTitle        = "notification.title"
	KeyNotificationConnected    = "notification.connected"
	KeyNotificationDisconnected = "notification.disconnected"
)

//go:embed translations.json
var builtinTranslations []byte

// Table maps language code → message key → template.
// It is built once at startup and never modified afterwards.
type Table map[string]map[string]string

// LoadTable decodes a JSON translation table.
func LoadTable(r io.Reader) (Table, error) {
	var t Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse translations: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// LoadTableFile reads a translation table from disk.
func LoadTableFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read translations file: %w", err)
	}
	return LoadTable(bytes.NewReader(data))
}

// DefaultTable returns the table compiled into the binary.
func DefaultTable() Table {
	t, err := LoadTable(bytes.NewReader(builtinTranslations))
	if err != nil {
		panic(err)
	}
	return t
}

// Languages returns the language codes present in the table, sorted.
func (t Table) Languages() []string {
	langs := make([]string, 0, len(t))
	for code := range t {
		langs = append(langs, code)
	}
	sort.Strings(langs)
	return langs
}

func (t Table) lookup(lang, key string) (string, bool) {
	msgs, ok := t[lang]
	if !ok {
		return "", false
	}
	tmpl, ok := msgs[key]
	return tmpl, ok
}

func (t Table) clone() Table {
	out := make(Table, len(t))
	for lang, entries := range t {
		copied := make(map[string]string, len(entries))
		for k, v := range entries {
			copied[k] = v
		}
		out[lang] = copied
	}
	return out
}
