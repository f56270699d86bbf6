package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRateLimitExceeded(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimitExceeded(42).WriteJSON(rec)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, float64(42), body["retryAfter"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, string(CodeRateLimitExceeded), body["code"])
}

func TestRateLimitExceeded_MinimumOneSecond(t *testing.T) {
	assert.Equal(t, 1, RateLimitExceeded(0).RetryAfter)
}

func TestInvalidOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	InvalidOrigin().WriteJSON(rec)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
	body := decode(t, rec)
	assert.Equal(t, "Forbidden: Invalid origin", body["error"])
	_, hasRetry := body["retryAfter"]
	assert.False(t, hasRetry)
}

func TestInternalErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(errors.New("redis: dial tcp 10.0.0.5:6379")).WriteJSONWithRequestID(rec, "req-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-1", decode(t, rec)["request_id"])
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	sigErr := InvalidSignature(errors.New("expired"))
	wrapped := errors.Join(errors.New("ctx"), sigErr)
	assert.Same(t, sigErr, FromError(wrapped))
	assert.ErrorContains(t, wrapped, "expired")

	assert.Equal(t, CodeInternalError, FromError(errors.New("boom")).Code)
}

func TestValidationFailed(t *testing.T) {
	fields := []FieldError{{Field: "email", Message: "must be a valid email address"}}
	rec := httptest.NewRecorder()
	ValidationFailed(fields).WriteJSON(rec)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, string(CodeValidationFailed), body["code"])
	details, ok := body["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].(map[string]any)["field"])
}

func TestMalformedBodyHidesParserMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	MalformedBody(errors.New(`json: unknown field "admin"`)).WriteJSON(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "admin")
}
