// Package l10n resolves multilingual name records for the marketplace's
// Persian/German audience, with English as the neutral tier.
package l10n

import "golang.org/x/text/language"

// Locale identifies a supported display language.
type Locale uint8

const (
	// LocaleEn is the neutral tier; every unknown tag lands here.
	LocaleEn Locale = iota
	// LocaleFa is Persian.
	LocaleFa
	// LocaleDe is German.
	LocaleDe
)

// matcher order: English first so it is the fallback for unmatched tags.
var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Persian,
	language.German,
})

// ParseLocale maps a BCP 47 tag ("fa", "fa-IR", "de-AT", ...) to a Locale.
// Anything that does not match Persian or German is treated as English.
func ParseLocale(s string) Locale {
	if s == "" {
		return LocaleEn
	}
	tag, err := language.Parse(s)
	if err != nil {
		return LocaleEn
	}
	_, index, _ := matcher.Match(tag)
	switch index {
	case 1:
		return LocaleFa
	case 2:
		return LocaleDe
	default:
		return LocaleEn
	}
}

// String returns the canonical tag for the locale.
func (l Locale) String() string {
	switch l {
	case LocaleFa:
		return "fa"
	case LocaleDe:
		return "de"
	default:
		return "en"
	}
}
