package middleware

import (
	"net/http"
	"strconv"
)

// hstsMaxAge is one year.
const hstsMaxAge = 365 * 24 * 60 * 60

var hstsValue = "max-age=" + strconv.Itoa(hstsMaxAge) + "; includeSubDomains"

// SecurityHeaders sets response headers for a JSON-only API: nothing may be
// framed, sniffed, cached or loaded as a subresource. HSTS is sent only when
// hsts is true, which should mean the service sits behind HTTPS.
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cross-Origin-Resource-Policy", "same-site")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			h.Set("Cache-Control", "no-store")
			if hsts {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
