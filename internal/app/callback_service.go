package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/makerstokyo/api/internal/metrics"
	"github.com/makerstokyo/api/pkg/email"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/signature"
	"github.com/makerstokyo/api/pkg/validator"
)

// CallbackPath is where signed magic links point.
const CallbackPath = "/api/v1/callbacks/verify"

// ErrInvalidCallback is returned for links that are unsigned, tampered or
// older than the signer's max age.
var ErrInvalidCallback = errors.New("invalid callback link")

// LinkMailer delivers magic links. *email.SMTPSender implements it.
type LinkMailer interface {
	SendTemplate(ctx context.Context, to string, template email.Template, data any) error
}

// CallbackService issues and checks signed magic links.
type CallbackService struct {
	signer    *signature.Signer
	baseURL   string
	sink      EventSink
	mailer    LinkMailer
	appName   string
	validator *validator.Validator
	logger    *logger.Logger
}

// NewCallbackService creates a new CallbackService. baseURL is the public
// scheme://host the links point at.
func NewCallbackService(signer *signature.Signer, baseURL string, sink EventSink, v *validator.Validator, log *logger.Logger) *CallbackService {
	return &CallbackService{
		signer:    signer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		sink:      sink,
		validator: v,
		logger:    log.With("service", "callback"),
	}
}

// SetMailer enables delivery of issued links by mail. Without a mailer links
// only reach the event sink.
func (s *CallbackService) SetMailer(m LinkMailer, appName string) {
	s.mailer = m
	s.appName = appName
}

// IssueMagicLinkInput is a request for a sign-in link.
type IssueMagicLinkInput struct {
	Email string `json:"email" validate:"required,email_addr"`
}

// MagicLink is a signed callback URL.
type MagicLink struct {
	Email     string    `json:"email"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueMagicLink signs a callback link for the email and hands it to the
// sink for delivery.
func (s *CallbackService) IssueMagicLink(ctx context.Context, input IssueMagicLinkInput) (*MagicLink, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	q := url.Values{"email": {input.Email}}
	signed, err := s.signer.SignURL(s.baseURL + CallbackPath + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("sign callback url: %w", err)
	}
	issuedAt, err := signedAt(signed)
	if err != nil {
		return nil, err
	}

	link := &MagicLink{
		Email:     input.Email,
		URL:       signed,
		ExpiresAt: issuedAt.Add(s.signer.MaxAge()).UTC(),
	}
	if err := publish(ctx, s.sink, newEvent(SourceAuth, EventMagicLinkIssued, issuedAt, link)); err != nil {
		return nil, err
	}
	if s.mailer != nil {
		err := s.mailer.SendTemplate(ctx, link.Email, email.TemplateMagicLink, email.MagicLinkData{
			Email:     link.Email,
			LinkURL:   link.URL,
			ExpiresIn: s.signer.MaxAge().String(),
			AppName:   s.appName,
		})
		if err != nil {
			metrics.CallbacksTotal.WithLabelValues("issue", metrics.ResultError).Inc()
			return nil, fmt.Errorf("deliver magic link: %w", err)
		}
	}

	metrics.CallbacksTotal.WithLabelValues("issue", metrics.ResultOK).Inc()
	s.logger.WithContext(ctx).Info("magic link issued", "expires_at", link.ExpiresAt)
	return link, nil
}

// CallbackIdentity is what a verified link vouches for.
type CallbackIdentity struct {
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}

// VerifyCallback checks the signature and age of a callback request URL.
// Links are reusable until they expire.
func (s *CallbackService) VerifyCallback(ctx context.Context, u *url.URL) (*CallbackIdentity, error) {
	if err := s.signer.VerifyRequestURL(u); err != nil {
		metrics.CallbacksTotal.WithLabelValues("verify", metrics.ResultDenied).Inc()
		s.logger.WithContext(ctx).Warn("callback rejected", "reason", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrInvalidCallback, err)
	}

	issuedAt, err := signedAt(u.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCallback, err)
	}
	metrics.CallbacksTotal.WithLabelValues("verify", metrics.ResultValid).Inc()
	return &CallbackIdentity{
		Email:    u.Query().Get("email"),
		IssuedAt: issuedAt.UTC(),
	}, nil
}

func signedAt(rawURL string) (time.Time, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse signed url: %w", err)
	}
	ms, err := strconv.ParseInt(u.Query().Get(signature.ParamTimestamp), 10, 64)
	if err != nil {
		return time.Time{}, signature.ErrMalformed
	}
	return time.UnixMilli(ms), nil
}
