package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/makerstokyo/api/internal/app"
	"github.com/makerstokyo/api/internal/infra/http/middleware"
	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/logger"
)

// CallbackHandler issues magic links and verifies signed callbacks.
type CallbackHandler struct {
	service *app.CallbackService
	// exposeLinks returns the signed URL in the response body. Only
	// development deployments set it; elsewhere delivery happens out of band.
	exposeLinks bool
	logger      *logger.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(svc *app.CallbackService, exposeLinks bool, log *logger.Logger) *CallbackHandler {
	return &CallbackHandler{
		service:     svc,
		exposeLinks: exposeLinks,
		logger:      log.With("handler", "callback"),
	}
}

// MagicLinkRequest asks for a sign-in link.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLinkResponse acknowledges a link request.
type MagicLinkResponse struct {
	Sent      bool      `json:"sent"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url,omitempty"`
}

// IssueMagicLink handles POST /api/v1/auth/magic-link.
func (h *CallbackHandler) IssueMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if isFormRequest(r) {
		if err := parseForm(r); err != nil {
			writeDecodeError(w, r, err)
			return
		}
		req.Email = r.PostFormValue("email")
	} else if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	link, err := h.service.IssueMagicLink(r.Context(), app.IssueMagicLinkInput{Email: req.Email})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := MagicLinkResponse{Sent: true, ExpiresAt: link.ExpiresAt}
	if h.exposeLinks {
		resp.URL = link.URL
	}
	writeJSONResponse(w, http.StatusAccepted, resp)
}

// VerifyCallback handles GET /api/v1/callbacks/verify.
func (h *CallbackHandler) VerifyCallback(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.VerifyCallback(r.Context(), r.URL)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCallback) {
			apierror.InvalidSignature(err).WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
			return
		}
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, identity)
}
