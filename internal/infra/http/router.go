package http

import (
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router is the routing surface used by the routes package. Each route lists
// its own guards; they run in the order given, first one outermost.
//
//	r.POST("/api/v1/forms/{formID}/submissions", h.Submit,
//		rateLimit, requireOrigin, requireCaptcha)
type Router interface {
	GET(path string, handler http.HandlerFunc, guards ...Middleware)
	POST(path string, handler http.HandlerFunc, guards ...Middleware)

	// Group mounts routes under prefix. Group middleware runs before the
	// per-route guards.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use adds middleware to every route of the router.
	Use(middlewares ...Middleware)

	Handler() http.Handler

	// Walk visits every registered method and path pattern.
	Walk(fn func(method, path string) error) error
}

// chain wraps h so that middlewares[0] runs first.
func chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
