package routes

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makerstokyo/api/internal/infra/http/handler"
	"github.com/makerstokyo/api/pkg/ratelimit"
)

// Probes and the scrape endpoint carry no guards; they are meant for the
// orchestrator and Prometheus, not browsers.
func registerOperationalRoutes(router Router, h *handler.HealthHandler) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", promhttp.Handler().ServeHTTP)
}

// The widget config is public but still rate limited so it cannot be used
// to probe the service cheaply.
func registerCaptchaRoutes(router Router, h *handler.CaptchaHandler, g Guards) {
	router.GET("/api/v1/captcha/config", h.Config, g.rateLimit(ratelimit.PresetAPI))
}
