package apierror

import "net/http"

// InvalidOriginMessage is the fixed message for origin rejections.
const InvalidOriginMessage = "Forbidden: Invalid origin"

// New returns an error with the given status, code and client message.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest is a 400 with a caller-chosen message.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// MalformedBody is a 400 for bodies that could not be parsed. The parser's
// message stays in Err.
func MalformedBody(err error) *Error {
	e := New(http.StatusBadRequest, CodeBadRequest, "Invalid request")
	e.Err = err
	return e
}

// NotFound is a 404 naming the missing resource, if any.
func NotFound(resource string) *Error {
	if resource == "" {
		return New(http.StatusNotFound, CodeNotFound, "Resource not found")
	}
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func MethodNotAllowed() *Error {
	return New(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

func PayloadTooLarge() *Error {
	return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large")
}

// UnsupportedEncoding is a 415 for a Content-Encoding the server will not inflate.
func UnsupportedEncoding(encoding string) *Error {
	return New(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "Unsupported content encoding: "+encoding)
}

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationFailed is a 422 listing every rejected field.
func ValidationFailed(fields []FieldError) *Error {
	e := New(http.StatusUnprocessableEntity, CodeValidationFailed, "Validation failed")
	e.Details = fields
	return e
}

// RateLimitExceeded is a 429. retryAfter is rounded up to at least one second.
func RateLimitExceeded(retryAfter int) *Error {
	e := New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Too many requests. Please try again later.")
	e.RetryAfter = max(retryAfter, 1)
	return e
}

func InvalidOrigin() *Error {
	return New(http.StatusForbidden, CodeInvalidOrigin, InvalidOriginMessage)
}

// CaptchaFailed asks the client to solve the challenge again.
func CaptchaFailed() *Error {
	return New(http.StatusBadRequest, CodeCaptchaFailed, "CAPTCHA verification failed")
}

// InvalidSignature covers missing, malformed, wrong and expired signatures
// alike; the reason stays in Err.
func InvalidSignature(err error) *Error {
	e := New(http.StatusUnauthorized, CodeInvalidSignature, "Invalid or expired signature")
	e.Err = err
	return e
}

// RequestTimeout is a 503 for a handler that ran out of time.
func RequestTimeout() *Error {
	return New(http.StatusServiceUnavailable, CodeRequestTimeout, "Request timed out")
}

// InternalError is a 500 that never shows err to the client.
func InternalError(err error) *Error {
	e := New(http.StatusInternalServerError, CodeInternalError, "An internal error occurred")
	e.Err = err
	return e
}

// ServiceUnavailable is a 503, with a default message when message is empty.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}
