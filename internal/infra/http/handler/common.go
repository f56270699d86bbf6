package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/makerstokyo/api/internal/infra/http/middleware"
	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/validator"
)

// maxJSONBody bounds JSON decoding independently of the body limit middleware.
const maxJSONBody = 1 << 20

// writeJSONResponse writes data as JSON with the given status.
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// isFormRequest reports whether the body is url-encoded or multipart form data.
func isFormRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// parseForm parses a url-encoded or multipart body. Uploaded files are not
// accepted by any endpoint, so multipart parts are kept in memory.
func parseForm(r *http.Request) error {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		return r.ParseMultipartForm(maxJSONBody)
	}
	return r.ParseForm()
}

// decodeJSON decodes a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// writeDecodeError maps body read and decode failures to API errors.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	if middleware.IsBodyTooLarge(err) {
		apierror.PayloadTooLarge().WriteJSONWithRequestID(w, requestID)
		return
	}
	apierror.MalformedBody(err).WriteJSONWithRequestID(w, requestID)
}

// handleServiceError converts service errors to API errors. Validation errors
// become 422 with field details; anything else is logged and hidden.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]apierror.FieldError, len(validationErrors))
		for i, ve := range validationErrors {
			fields[i] = apierror.FieldError{Field: ve.Field, Message: ve.Message}
		}
		apierror.ValidationFailed(fields).WriteJSONWithRequestID(w, requestID)
		return
	}

	apiErr := apierror.FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		log.WithContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
	}
	apiErr.WriteJSONWithRequestID(w, requestID)
}
