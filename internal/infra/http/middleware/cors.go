package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/pkg/origin"
)

// exposedHeaders lets browser clients read the limiter state and request ID.
var exposedHeaders = strings.Join([]string{
	"Retry-After",
	HeaderRateLimitLimit,
	HeaderRateLimitRemaining,
	HeaderRateLimitReset,
	HeaderRequestID,
}, ", ")

// CORS answers preflights and sets CORS headers for origins on the guard's
// allow-list. Other origins get no Access-Control-Allow-Origin header; the
// request itself is still judged by RequireOrigin.
func CORS(cfg *config.CORSConfig, guard *origin.Guard) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if o := r.Header.Get("Origin"); o != "" && guard.IsAllowed(o) {
				h.Set("Access-Control-Allow-Origin", o)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				h.Set("Access-Control-Expose-Headers", exposedHeaders)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
