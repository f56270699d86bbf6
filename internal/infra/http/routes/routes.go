// Package routes registers all HTTP routes for the API.
//
// Every route carries its own guard chain. Rate limiting always runs first so
// that rejected callers never reach the origin check, the captcha provider or
// the signature check.
package routes

import (
	"net/http"

	infrahttp "github.com/makerstokyo/api/internal/infra/http"
	"github.com/makerstokyo/api/internal/infra/http/handler"
	"github.com/makerstokyo/api/internal/infra/http/middleware"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/origin"
	"github.com/makerstokyo/api/pkg/ratelimit"
	"github.com/makerstokyo/api/pkg/signature"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health   *handler.HealthHandler
	Captcha  *handler.CaptchaHandler
	Intake   *handler.IntakeHandler
	Campaign *handler.CampaignHandler
	Callback *handler.CallbackHandler
	Event    *handler.EventHandler
}

// Guards holds the shared guard components. A nil Limiter disables rate
// limiting.
type Guards struct {
	Limiter   *ratelimit.Limiter
	RateLimit middleware.RateLimitConfig
	Origin    *origin.Guard
	Captcha   middleware.CaptchaVerifier
	RemoteIP  func(*http.Request) string
	Signer    *signature.Signer
	Logger    *logger.Logger
}

func (g Guards) rateLimit(p ratelimit.Preset) Middleware {
	return middleware.RateLimit(g.Limiter, p, g.RateLimit)
}

func (g Guards) requireOrigin() Middleware {
	return middleware.RequireOrigin(g.Origin, g.Logger)
}

func (g Guards) requireCaptcha() Middleware {
	return middleware.RequireCaptcha(g.Captcha, g.RemoteIP, g.Logger)
}

func (g Guards) requireSignature() Middleware {
	return middleware.RequireSignature(g.Signer, g.Logger)
}

// Register registers all application routes.
func Register(router Router, h Handlers, g Guards) {
	registerOperationalRoutes(router, h.Health)
	registerCaptchaRoutes(router, h.Captcha, g)
	registerIntakeRoutes(router, h.Intake, g)
	registerCampaignRoutes(router, h.Campaign, g)
	registerCallbackRoutes(router, h.Callback, g)
	registerInternalRoutes(router, h.Event, g)
}
