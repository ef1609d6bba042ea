package i18n

import (
	"fmt"
	"strings"
	"sync"
)

// Locale is the process-wide active language selector.
// It has its own lock, independent of any other state.
type Locale struct {
	mu   sync.RWMutex
	code string
}

// NewLocale creates a locale cell; an empty code selects DefaultLang.
func NewLocale(code string) *Locale {
	code = strings.TrimSpace(code)
	if code == "" {
		code = DefaultLang
	}
	return &Locale{code: code}
}

// Get returns the active language code.
func (l *Locale) Get() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.code
}

// Set switches the active language. Unknown codes are accepted; resolution falls back.
func (l *Locale) Set(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("language code must not be empty")
	}
	l.mu.Lock()
	l.code = code
	l.mu.Unlock()
	return fmt.Sprintf("Language set to: %s", code), nil
}

// LanguageSource 是 settings 模块传来的语言配置的最小接口。
type LanguageSource interface {
	GetLanguage() string
}

// OnSettingsUpdate lets a persisted language change reach the active locale.
func (l *Locale) OnSettingsUpdate(moduleKey string, newSettings interface{}) error {
	src, ok := newSettings.(LanguageSource)
	if !ok {
		return fmt.Errorf("invalid settings type for module %s", moduleKey)
	}
	if src.GetLanguage() == "" {
		return nil
	}
	_, err := l.Set(src.GetLanguage())
	return err
}
