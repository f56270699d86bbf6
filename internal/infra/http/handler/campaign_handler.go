package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/makerstokyo/api/internal/app"
	infrahttp "github.com/makerstokyo/api/internal/infra/http"
	"github.com/makerstokyo/api/pkg/logger"
)

// CampaignHandler records plays of gamified campaigns.
type CampaignHandler struct {
	service  *app.CampaignService
	clientID ClientIDFunc
	logger   *logger.Logger
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(svc *app.CampaignService, clientID ClientIDFunc, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		service:  svc,
		clientID: clientID,
		logger:   log.With("handler", "campaign"),
	}
}

// RecordPlayRequest is the optional body of a play.
type RecordPlayRequest struct {
	Nickname string `json:"nickname,omitempty"`
}

// RecordPlayResponse acknowledges a play.
type RecordPlayResponse struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	Nickname   string `json:"nickname,omitempty"`
}

// RecordPlay handles POST /api/v1/campaigns/{campaignID}/plays. An empty body
// records an anonymous play.
func (h *CampaignHandler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	var req RecordPlayRequest
	switch {
	case isFormRequest(r):
		if err := parseForm(r); err != nil {
			writeDecodeError(w, r, err)
			return
		}
		req.Nickname = r.PostFormValue("nickname")
	default:
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeDecodeError(w, r, err)
			return
		}
	}

	play, err := h.service.RecordPlay(r.Context(), app.RecordPlayInput{
		CampaignID: infrahttp.PathParam(r, "campaignID"),
		Nickname:   req.Nickname,
		ClientID:   h.clientID(r),
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, RecordPlayResponse{
		ID:         play.ID,
		CampaignID: play.CampaignID,
		Nickname:   play.Nickname,
	})
}
