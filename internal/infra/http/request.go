package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PathParam returns the named path segment matched by the router. Handlers
// go through it rather than chi so they do not depend on the router type.
func PathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
