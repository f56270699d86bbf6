package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/logger"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR body. The panic
// value never reaches the client; the stack is logged outside production.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(log *logger.Logger, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				requestID := GetRequestID(r.Context())
				attrs := []any{"panic", p, "method", r.Method, "path", r.URL.Path}
				if !production {
					attrs = append(attrs, "stack", string(debug.Stack()))
				}
				log.WithContext(r.Context()).Error("panic recovered", attrs...)
				apierror.InternalError(nil).WriteJSONWithRequestID(w, requestID)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
