package middleware

import (
	"errors"
	"net/http"

	"github.com/makerstokyo/api/pkg/apierror"
)

// DefaultMaxBodySize is 1 MiB.
const DefaultMaxBodySize = 1 << 20

// BodyLimit caps request bodies at maxBytes (DefaultMaxBodySize when not
// positive). A declared Content-Length over the cap is rejected with 413
// before the handler runs; undeclared bodies are cut off by
// http.MaxBytesReader and surface to the handler as a read error that
// IsBodyTooLarge recognises.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				apierror.PayloadTooLarge().WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from a body over the limit.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
