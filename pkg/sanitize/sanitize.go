// Package sanitize provides total functions for escaping, validating and
// trimming untrusted strings. None of them panic or return errors; bad input
// produces a safe default.
package sanitize

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length ceilings.
const (
	MaxEmailLength    = 254
	MaxFilenameLength = 255
)

// Escapes are applied in a single left-to-right pass over the input, so an
// entity produced for one character is never escaped again.
var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"`", "&#x60;",
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EscapeHTML replaces & < > " ' and backtick with HTML entities.
// The empty string maps to itself.
func EscapeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlReplacer.Replace(s)
}

// IsValidEmail checks for a single @ between non-blank parts, a dot in the
// domain, and at most MaxEmailLength characters.
func IsValidEmail(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > MaxEmailLength {
		return false
	}
	return emailPattern.MatchString(s)
}

// IsValidURL accepts absolute http and https URLs with a host.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return u.Host != ""
}

// Truncate returns at most maxLength characters of s. No ellipsis is added
// and multi-byte characters are never split. A zero or negative maxLength
// yields the empty string.
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	if len(s) <= maxLength {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLength {
			return s[:i]
		}
		n++
	}
	return s
}

// SafeJSON encodes v for inline embedding in an HTML script block.
// <, > and & become \u003c, \u003e and \u0026. Values that cannot be
// encoded produce "null".
func SafeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	// json.Marshal already escapes these; kept explicit so a change of
	// encoder cannot silently drop it.
	return jsonHTMLReplacer.Replace(string(b))
}

var jsonHTMLReplacer = strings.NewReplacer("<", `\u003c`, ">", `\u003e`, "&", `\u0026`)

var filenameReplacer = strings.NewReplacer(
	"/", "", `\`, "", ":", "", "*", "", "?", "",
	`"`, "", "<", "", ">", "", "|", "",
)

// SanitizeFilename removes path separators, shell-meaningful characters,
// control characters and every ".." sequence, then caps the result at
// MaxFilenameLength characters.
func SanitizeFilename(s string) string {
	s = filenameReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	return Truncate(s, MaxFilenameLength)
}

// Text trims s, caps it at maxLength characters and escapes it for HTML.
func Text(s string, maxLength int) string {
	return EscapeHTML(Truncate(strings.TrimSpace(s), maxLength))
}
