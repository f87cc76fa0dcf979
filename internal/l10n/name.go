package l10n

// Name is a multilingual name record as delivered by the backend. Any subset
// of the fields may be present; an all-empty record resolves to "".
type Name struct {
	Fa string `json:"fa,omitempty"`
	De string `json:"de,omitempty"`
	En string `json:"en,omitempty"`
}

// Resolve picks the display string for locale using the three-language
// fallback chain. Pure and total: identical inputs always yield the same
// output and no input errors.
func Resolve(n Name, locale Locale) string {
	switch locale {
	case LocaleFa:
		return first(n.Fa, n.De, n.En)
	case LocaleDe:
		return first(n.De, n.Fa, n.En)
	default:
		return first(n.En, n.De, n.Fa)
	}
}

// ResolveCategory picks the display string for category names, which are only
// maintained in Persian and German. English values never surface here.
func ResolveCategory(n Name, locale Locale) string {
	if locale == LocaleFa {
		return first(n.Fa, n.De)
	}
	return first(n.De, n.Fa)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
