package sanitize

import (
	"regexp"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// suspiciousPatterns is a heuristic denylist. A match is a signal to flag or
// log the input, never a substitute for escaping or parameterised queries.
var suspiciousPatterns = []*regexp.Regexp{
	// script tags
	regexp.MustCompile(`(?i)<\s*/?\s*script\b`),
	// inline event handlers: onload=, onerror =, ...
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	// script-capable URIs
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
	// SQL tautologies: ' OR '1'='1, " or 1=1, OR 1=1
	regexp.MustCompile(`(?i)['"]\s*(or|and)\s+['"]?\w+['"]?\s*=\s*['"]?\w+`),
	regexp.MustCompile(`(?i)\b(or|and)\s+(\d+)\s*=\s*(\d+)\b`),
	// stacked destructive statements
	regexp.MustCompile(`(?i);\s*(drop|delete)\s+(table|database|from)\b`),
	regexp.MustCompile(`(?i)\bunion\b(\s+all)?\s+select\b`),
}

// ContainsSuspiciousPattern reports whether s looks like a script injection
// or SQL injection attempt. The input is NFKC-normalised and stripped of
// invisible characters first, so fullwidth or zero-width obfuscation does
// not hide a match.
func ContainsSuspiciousPattern(s string) bool {
	if s == "" {
		return false
	}
	n := Normalize(s)
	for _, p := range suspiciousPatterns {
		if p.MatchString(n) {
			return true
		}
	}
	return false
}

// Normalize applies NFKC and removes control and zero-width characters,
// keeping newlines and tabs. On transform failure s is returned unchanged.
func Normalize(s string) string {
	t := transform.Chain(
		norm.NFKC,
		runes.Remove(runes.Predicate(invisible)),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func invisible(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u00ad':
		return true
	}
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}
