package main

import (
	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/internal/infra/http/handler"
	"github.com/makerstokyo/api/internal/infra/http/middleware"
	"github.com/makerstokyo/api/internal/infra/http/routes"
	"github.com/makerstokyo/api/pkg/logger"
)

// NewHandlers creates all HTTP handlers.
func NewHandlers(cfg *config.Config, infra *Infra, svc *Services, log *logger.Logger) routes.Handlers {
	healthOpts := []handler.HealthHandlerOption{handler.WithGuardStatus(guardStatus(cfg, infra))}
	if infra.Redis != nil {
		healthOpts = append(healthOpts, handler.WithRedis(infra.Redis))
	}

	return routes.Handlers{
		Health:   handler.NewHealthHandler(healthOpts...),
		Captcha:  handler.NewCaptchaHandler(infra.Captcha),
		Intake:   handler.NewIntakeHandler(svc.Intake, infra.Resolver.Resolve, log),
		Campaign: handler.NewCampaignHandler(svc.Campaign, infra.Resolver.Resolve, log),
		Callback: handler.NewCallbackHandler(svc.Callback, !cfg.IsProduction(), log),
		Event:    handler.NewEventHandler(svc.Event, log),
	}
}

// NewGuards collects the per-route guard components.
func NewGuards(cfg *config.Config, infra *Infra, log *logger.Logger) routes.Guards {
	return routes.Guards{
		Limiter: infra.Limiter,
		RateLimit: middleware.RateLimitConfig{
			FailOpen: cfg.RateLimit.FailOpen,
			Logger:   log,
		},
		Origin:   infra.OriginGuard,
		Captcha:  infra.Captcha,
		RemoteIP: infra.Resolver.Resolve,
		Signer:   infra.Signer,
		Logger:   log,
	}
}

// guardStatus describes the effective guard setup for the readiness probe.
func guardStatus(cfg *config.Config, infra *Infra) map[string]string {
	status := map[string]string{
		"rate_limit": "disabled",
		"captcha":    "disabled",
		"events":     cfg.Events.Sink,
		"mail":       "disabled",
	}
	if infra.Limiter != nil {
		status["rate_limit"] = cfg.RateLimit.Backend
	}
	if infra.Captcha.Enabled() {
		status["captcha"] = cfg.Turnstile.Policy
	}
	if cfg.SMTP.Enabled() {
		status["mail"] = "smtp"
	}
	return status
}
