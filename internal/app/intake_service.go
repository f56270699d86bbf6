package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/makerstokyo/api/internal/metrics"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/sanitize"
	"github.com/makerstokyo/api/pkg/validator"
)

// Stored lengths. Input may be longer; it is truncated after validation.
const (
	MaxNameLength    = 100
	MaxMessageLength = 5000
	MaxWebsiteLength = 2048
)

// IntakeService accepts public form submissions.
type IntakeService struct {
	sink      EventSink
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// NewIntakeService creates a new IntakeService.
func NewIntakeService(sink EventSink, v *validator.Validator, log *logger.Logger) *IntakeService {
	return &IntakeService{
		sink:      sink,
		validator: v,
		logger:    log.With("service", "intake"),
		now:       time.Now,
	}
}

// SubmitFormInput represents a raw form submission.
type SubmitFormInput struct {
	FormID   string `json:"form_id" validate:"required,max=64,slug"`
	Name     string `json:"name" validate:"required,max=1000"`
	Email    string `json:"email" validate:"required,email_addr"`
	Message  string `json:"message" validate:"required,max=20000"`
	Website  string `json:"website" validate:"omitempty,max=2048,http_url"`
	ClientID string `json:"-"`
}

// Submission is a sanitized submission ready for storage. Text fields are
// HTML-escaped and truncated.
type Submission struct {
	ID            string    `json:"id"`
	FormID        string    `json:"form_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Message       string    `json:"message"`
	Website       string    `json:"website,omitempty"`
	Flagged       bool      `json:"flagged"`
	FlaggedFields []string  `json:"flagged_fields,omitempty"`
	ClientID      string    `json:"client_id"`
	ReceivedAt    time.Time `json:"received_at"`
}

// SubmitForm validates, sanitizes and forwards a submission. Input that looks
// like an injection attempt is accepted but flagged for review.
func (s *IntakeService) SubmitForm(ctx context.Context, input SubmitFormInput) (*Submission, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Website = strings.TrimSpace(input.Website)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	var flagged []string
	for _, f := range []struct{ name, value string }{
		{"name", input.Name},
		{"message", input.Message},
		{"website", input.Website},
	} {
		if sanitize.ContainsSuspiciousPattern(f.value) {
			flagged = append(flagged, f.name)
		}
	}

	sub := &Submission{
		ID:            uuid.NewString(),
		FormID:        input.FormID,
		Name:          sanitize.Text(input.Name, MaxNameLength),
		Email:         strings.ToLower(input.Email),
		Message:       sanitize.Text(input.Message, MaxMessageLength),
		Website:       sanitize.EscapeHTML(sanitize.Truncate(input.Website, MaxWebsiteLength)),
		Flagged:       len(flagged) > 0,
		FlaggedFields: flagged,
		ClientID:      input.ClientID,
		ReceivedAt:    s.now().UTC(),
	}

	if err := publish(ctx, s.sink, newEvent(SourceIntake, EventSubmissionReceived, sub.ReceivedAt, sub)); err != nil {
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues(strconv.FormatBool(sub.Flagged)).Inc()
	log := s.logger.WithContext(ctx)
	if sub.Flagged {
		log.Warn("submission flagged",
			"submission_id", sub.ID,
			"form_id", sub.FormID,
			"fields", strings.Join(flagged, ","),
			"client", sub.ClientID,
		)
	} else {
		log.Info("submission accepted", "submission_id", sub.ID, "form_id", sub.FormID)
	}
	return sub, nil
}
