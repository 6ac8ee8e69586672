package models

import "fmt"

// Locale identifies a supported content-language variant.
type Locale string

// DefaultLocale is the fallback language used when a requested locale has
// nothing cached.
const DefaultLocale Locale = "en-GB"

// SupportedLocales is the fixed set of content languages the guide ships.
var SupportedLocales = []Locale{"en-GB", "nl-NL", "fr-FR", "de-DE", "zh-TW"}

// ParseLocale validates a raw locale string against the supported set.
func ParseLocale(s string) (Locale, error) {
	for _, l := range SupportedLocales {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported locale: %q", s)
}

// IsLocale reports whether s names a supported locale.
func IsLocale(s string) bool {
	_, err := ParseLocale(s)
	return err == nil
}
