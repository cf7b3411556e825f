package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and strips all whitespace so that header labels
// can be compared regardless of how the site spaces them.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name contains any of the
// normalized matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		m = NormalizeName(m)
		if m == "" {
			continue
		}
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Squash trims the string and collapses runs of whitespace into a single space.
func Squash(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Capitalize uppercases the first rune and lowercases the rest.
func Capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
