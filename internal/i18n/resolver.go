package i18n

import "strings"

// Resolver turns message keys into text for the currently active locale.
// Nothing is cached: a locale switch is visible on the next call.
type Resolver struct {
	table    Table
	locale   *Locale
	fallback string
}

// NewResolver creates a resolver over an immutable table and a shared locale.
func NewResolver(table Table, locale *Locale) *Resolver {
	table = table.clone()
	if locale == nil {
		locale = NewLocale(DefaultLang)
	}
	return &Resolver{table: table, locale: locale, fallback: DefaultLang}
}

// Locale returns the locale cell the resolver reads from.
func (r *Resolver) Locale() *Locale {
	return r.locale
}

// SetLocale switches the active language and returns the confirmation text.
func (r *Resolver) SetLocale(code string) (string, error) {
	return r.locale.Set(code)
}

// Languages returns the language codes the table carries.
func (r *Resolver) Languages() []string {
	return r.table.Languages()
}

// Resolve returns the template for key in the active locale.
func (r *Resolver) Resolve(key string) string {
	lang := r.locale.Get()
	if tmpl, ok := r.table.lookup(lang, key); ok {
		return tmpl
	}
	if tmpl, ok := r.table.lookup(r.fallback, key); ok {
		return tmpl
	}
	// unknown key: hand back the key itself
	return key
}

// ResolveWithSubstitution resolves key and replaces the first placeholder with value.
func (r *Resolver) ResolveWithSubstitution(key, value string) string {
	return strings.Replace(r.Resolve(key), Placeholder, value, 1)
}
