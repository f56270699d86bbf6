package handler

import (
	"net/http"

	"github.com/makerstokyo/api/internal/app"
	infrahttp "github.com/makerstokyo/api/internal/infra/http"
	"github.com/makerstokyo/api/pkg/logger"
)

// ClientIDFunc resolves the caller identifier for a request.
type ClientIDFunc func(*http.Request) string

// IntakeHandler handles public form submissions.
type IntakeHandler struct {
	service  *app.IntakeService
	clientID ClientIDFunc
	logger   *logger.Logger
}

// NewIntakeHandler creates a new IntakeHandler.
func NewIntakeHandler(svc *app.IntakeService, clientID ClientIDFunc, log *logger.Logger) *IntakeHandler {
	return &IntakeHandler{
		service:  svc,
		clientID: clientID,
		logger:   log.With("handler", "intake"),
	}
}

// SubmitFormRequest is the body of a form submission. Browsers post it
// url-encoded, scripts usually post JSON.
type SubmitFormRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Website string `json:"website,omitempty"`
}

// SubmitFormResponse acknowledges a stored submission.
type SubmitFormResponse struct {
	ID      string `json:"id"`
	Flagged bool   `json:"flagged"`
}

// Submit handles POST /api/v1/forms/{formID}/submissions.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitFormRequest
	if isFormRequest(r) {
		if err := parseForm(r); err != nil {
			writeDecodeError(w, r, err)
			return
		}
		req = SubmitFormRequest{
			Name:    r.PostFormValue("name"),
			Email:   r.PostFormValue("email"),
			Message: r.PostFormValue("message"),
			Website: r.PostFormValue("website"),
		}
	} else if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	sub, err := h.service.SubmitForm(r.Context(), app.SubmitFormInput{
		FormID:   infrahttp.PathParam(r, "formID"),
		Name:     req.Name,
		Email:    req.Email,
		Message:  req.Message,
		Website:  req.Website,
		ClientID: h.clientID(r),
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, SubmitFormResponse{ID: sub.ID, Flagged: sub.Flagged})
}
