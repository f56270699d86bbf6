// Package apierror writes the JSON error bodies returned by handlers and the
// guard middleware.
//
// A body always has a human-readable "error" and a machine-readable "code".
// Causes are carried in Error.Err for logs and never serialised.
package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// Code is the machine-readable error code.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMethodNotAllowed   Code = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia   Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeValidationFailed   Code = "VALIDATION_FAILED"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInvalidOrigin      Code = "INVALID_ORIGIN"
	CodeCaptchaFailed      Code = "CAPTCHA_FAILED"
	CodeInvalidSignature   Code = "INVALID_SIGNATURE"
	CodeRequestTimeout     Code = "REQUEST_TIMEOUT"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// Error is an HTTP error response.
type Error struct {
	Status  int
	Code    Code
	Message string
	// RetryAfter, in seconds, is sent both as a header and in the body.
	RetryAfter int
	Details    any
	// Err is the cause, for logging only.
	Err error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Response is the serialised body.
type Response struct {
	Error      string `json:"error"`
	Code       Code   `json:"code"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	Details    any    `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// WriteJSON writes the error without a request ID.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	e.WriteJSONWithRequestID(w, "")
}

// WriteJSONWithRequestID writes the error, echoing requestID in the
// X-Request-ID header and the body when it is set.
func (e *Error) WriteJSONWithRequestID(w http.ResponseWriter, requestID string) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	if requestID != "" {
		h.Set("X-Request-ID", requestID)
	}
	if e.RetryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(Response{
		Error:      e.Message,
		Code:       e.Code,
		RetryAfter: e.RetryAfter,
		Details:    e.Details,
		RequestID:  requestID,
	})
}

// FromError returns the *Error in err's chain, or wraps err as a 500.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return InternalError(err)
}
