package routes

import (
	"github.com/makerstokyo/api/internal/infra/http/handler"
	"github.com/makerstokyo/api/pkg/ratelimit"
)

// registerInternalRoutes registers server-to-server endpoints. Callers sign
// the raw body with the shared secret.
func registerInternalRoutes(router Router, h *handler.EventHandler, g Guards) {
	router.Group("/api/v1/internal", func(r Router) {
		r.POST("/events", h.Ingest)
	}, g.rateLimit(ratelimit.PresetAPI), g.requireSignature())
}
