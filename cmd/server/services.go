package main

import (
	"github.com/makerstokyo/api/internal/app"
	"github.com/makerstokyo/api/internal/config"
	"github.com/makerstokyo/api/pkg/email"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/validator"
)

// Services holds all service instances.
type Services struct {
	Intake   *app.IntakeService
	Campaign *app.CampaignService
	Callback *app.CallbackService
	Event    *app.EventService
}

// NewServices creates the application services on top of infra.
func NewServices(cfg *config.Config, infra *Infra, log *logger.Logger) *Services {
	v := validator.New()

	callback := app.NewCallbackService(infra.Signer, cfg.App.PublicBaseURL, infra.Sink, v, log)
	if cfg.SMTP.Enabled() {
		callback.SetMailer(email.NewSMTPSender(email.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			User:       cfg.SMTP.User,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			FromName:   cfg.SMTP.FromName,
			TLS:        cfg.SMTP.TLS,
			SkipVerify: cfg.SMTP.SkipVerify,
			Timeout:    cfg.SMTP.Timeout,
		}), cfg.App.Name)
		log.Info("magic link delivery enabled", "smtp_host", cfg.SMTP.Host)
	}

	return &Services{
		Intake:   app.NewIntakeService(infra.Sink, v, log),
		Campaign: app.NewCampaignService(infra.Sink, v, log),
		Callback: callback,
		Event:    app.NewEventService(infra.Sink, v, log),
	}
}
