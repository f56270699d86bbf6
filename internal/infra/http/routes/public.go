package routes

import (
	"github.com/makerstokyo/api/internal/app"
	"github.com/makerstokyo/api/internal/infra/http/handler"
	"github.com/makerstokyo/api/pkg/ratelimit"
)

// registerIntakeRoutes registers browser form submissions.
// Guards: form preset, origin, captcha.
func registerIntakeRoutes(router Router, h *handler.IntakeHandler, g Guards) {
	router.POST("/api/v1/forms/{formID}/submissions", h.Submit,
		g.rateLimit(ratelimit.PresetForm),
		g.requireOrigin(),
		g.requireCaptcha(),
	)
}

// registerCampaignRoutes registers gamified campaign plays.
// Guards: strict preset, origin, captcha.
func registerCampaignRoutes(router Router, h *handler.CampaignHandler, g Guards) {
	router.POST("/api/v1/campaigns/{campaignID}/plays", h.RecordPlay,
		g.rateLimit(ratelimit.PresetStrict),
		g.requireOrigin(),
		g.requireCaptcha(),
	)
}

// registerCallbackRoutes registers magic link issue and verification.
// The verify link is opened from a mail client, so it carries no Origin and
// is authenticated by its signature instead.
func registerCallbackRoutes(router Router, h *handler.CallbackHandler, g Guards) {
	router.POST("/api/v1/auth/magic-link", h.IssueMagicLink,
		g.rateLimit(ratelimit.PresetAuth),
		g.requireOrigin(),
	)
	router.GET(app.CallbackPath, h.VerifyCallback, g.rateLimit(ratelimit.PresetAuth))
}
