package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// clip drops control characters, which would let a client forge log lines, and caps the
// result at limit runes.
func clip(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(cleaned) <= limit {
		return cleaned
	}
	return string([]rune(cleaned)[:limit])
}

// SanitizeRoute bounds a chi route pattern or raw path for logs and span names.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, 180)
}

// SanitizeMethod bounds an HTTP method.
func SanitizeMethod(method string) string {
	return clip(method, 10)
}

// SanitizeSubject bounds till session ids and admin usernames.
func SanitizeSubject(subject string) string {
	return clip(subject, 64)
}
