package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/makerstokyo/api/internal/metrics"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/sanitize"
	"github.com/makerstokyo/api/pkg/validator"
)

// MaxNicknameLength bounds the public nickname shown with a play.
const MaxNicknameLength = 40

// CampaignService records plays of gamified campaigns. Abuse control lives in
// the HTTP layer (strict rate limit and captcha); the service trusts its caller.
type CampaignService struct {
	sink      EventSink
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// NewCampaignService creates a new CampaignService.
func NewCampaignService(sink EventSink, v *validator.Validator, log *logger.Logger) *CampaignService {
	return &CampaignService{
		sink:      sink,
		validator: v,
		logger:    log.With("service", "campaign"),
		now:       time.Now,
	}
}

// RecordPlayInput represents one play request.
type RecordPlayInput struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64,slug"`
	Nickname   string `json:"nickname" validate:"omitempty,max=200"`
	ClientID   string `json:"-"`
}

// Play is a recorded play.
type Play struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Nickname   string    `json:"nickname,omitempty"`
	ClientID   string    `json:"client_id"`
	PlayedAt   time.Time `json:"played_at"`
}

// RecordPlay records a play. A nickname that looks like an injection attempt
// is dropped and the play is recorded anonymously.
func (s *CampaignService) RecordPlay(ctx context.Context, input RecordPlayInput) (*Play, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	nickname := input.Nickname
	if sanitize.ContainsSuspiciousPattern(nickname) {
		s.logger.WithContext(ctx).Warn("nickname dropped", "campaign_id", input.CampaignID, "client", input.ClientID)
		nickname = ""
	}

	play := &Play{
		ID:         uuid.NewString(),
		CampaignID: input.CampaignID,
		Nickname:   sanitize.Text(nickname, MaxNicknameLength),
		ClientID:   input.ClientID,
		PlayedAt:   s.now().UTC(),
	}

	if err := publish(ctx, s.sink, newEvent(SourceCampaign, EventPlayRecorded, play.PlayedAt, play)); err != nil {
		return nil, err
	}
	metrics.PlaysTotal.Inc()
	return play, nil
}
