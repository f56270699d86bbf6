package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/makerstokyo/api/internal/metrics"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/validator"
)

// Event types.
const (
	EventSubmissionReceived = "submission.received"
	EventPlayRecorded       = "campaign.play_recorded"
	EventMagicLinkIssued    = "auth.magic_link_issued"
)

// Event sources, also used as the "kind" metric label.
const (
	SourceIntake   = "intake"
	SourceCampaign = "campaign"
	SourceAuth     = "auth"
	SourceInternal = "internal"
)

// Event is a fact handed to downstream consumers such as the mailer or the
// moderation queue.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// EventSink delivers events. Implementations must be safe for concurrent use.
type EventSink interface {
	Publish(ctx context.Context, e Event) error
}

// LogSink writes event metadata to the log. Event data is not logged because
// it can carry personal data and signed links.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.With("sink", "log")}
}

// Publish implements EventSink.
func (s *LogSink) Publish(ctx context.Context, e Event) error {
	s.logger.WithContext(ctx).Info("event published",
		"event_id", e.ID,
		"event_type", e.Type,
		"source", e.Source,
	)
	return nil
}

func newEvent(source, typ string, at time.Time, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Source:     source,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

func publish(ctx context.Context, sink EventSink, e Event) error {
	if err := sink.Publish(ctx, e); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(e.Source, metrics.ResultError).Inc()
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(e.Source, metrics.ResultOK).Inc()
	return nil
}

// EventService accepts events from trusted internal callers.
type EventService struct {
	sink      EventSink
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(sink EventSink, v *validator.Validator, log *logger.Logger) *EventService {
	return &EventService{
		sink:      sink,
		validator: v,
		logger:    log.With("service", "events"),
		now:       time.Now,
	}
}

// IngestEventInput is an event posted by another service.
type IngestEventInput struct {
	Type string          `json:"type" validate:"required,max=64,printascii"`
	Data json.RawMessage `json:"data"`
}

// Ingest validates and forwards an internal event.
func (s *EventService) Ingest(ctx context.Context, input IngestEventInput) (Event, error) {
	if err := s.validator.Validate(input); err != nil {
		return Event{}, err
	}
	if len(input.Data) > 0 && !json.Valid(input.Data) {
		return Event{}, validator.ValidationErrors{{Field: "data", Message: "must be valid JSON"}}
	}

	e := newEvent(SourceInternal, input.Type, s.now(), input.Data)
	if err := publish(ctx, s.sink, e); err != nil {
		return Event{}, err
	}
	s.logger.WithContext(ctx).Info("internal event accepted", "event_id", e.ID, "event_type", e.Type)
	return e, nil
}
