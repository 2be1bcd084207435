package internal

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NumberFormat prints macro values with locale grouping and decimal separators
type NumberFormat struct {
	Tag     language.Tag
	printer *message.Printer
}

// NewNumberFormat returns a formatter for the given locale tag
func NewNumberFormat(tag language.Tag) NumberFormat {
	return NumberFormat{Tag: tag, printer: message.NewPrinter(tag)}
}

// DetectNumberFormat builds a formatter from the OS locale, falling back to English.
func DetectNumberFormat() NumberFormat {
	if tag, ok := parseLocaleTag(detectSystemLocale()); ok {
		return NewNumberFormat(tag)
	}
	return NewNumberFormat(language.English)
}

// detectSystemLocale returns the user's locale string, or "" when none is set.
// LC_NUMERIC, LC_ALL and LANG are consulted before the platform setting.
func detectSystemLocale() string {
	if locale := localeFromEnv(os.Getenv); locale != "" {
		return locale
	}
	return platformLocale()
}

func localeFromEnv(getenv func(string) string) string {
	for _, key := range []string{"LC_NUMERIC", "LC_ALL", "LANG"} {
		if v := getenv(key); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return ""
}

// parseLocaleTag converts a POSIX locale string to a language tag.
// Examples: "sv_SE.UTF-8" -> sv-SE, "pt_BR" -> pt-BR, "C" -> not ok
func parseLocaleTag(locale string) (language.Tag, bool) {
	base := locale
	// Remove encoding suffix (everything after .)
	if idx := strings.Index(base, "."); idx != -1 {
		base = base[:idx]
	}
	// Remove modifier suffix (everything after @)
	if idx := strings.Index(base, "@"); idx != -1 {
		base = base[:idx]
	}
	if base == "" || base == "C" || base == "POSIX" {
		return language.Und, false
	}

	// Convert to BCP 47 format: "sv_SE" -> "sv-SE"
	tag, err := language.Parse(strings.Replace(base, "_", "-", 1))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// Format prints v with at most two fraction digits
func (f NumberFormat) Format(v float64) string {
	return f.p().Sprint(number.Decimal(Round2(v), number.MaxFractionDigits(2)))
}

// FormatInt prints a whole number with grouping
func (f NumberFormat) FormatInt(v int) string {
	return f.p().Sprint(number.Decimal(v))
}

// FormatUnit prints v followed by a unit, e.g. "1,250.5 kcal"
func (f NumberFormat) FormatUnit(v float64, unit string) string {
	return f.Format(v) + " " + unit
}

func (f NumberFormat) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.English)
	}
	return f.printer
}
