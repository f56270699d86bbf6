package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/clientip"
	"github.com/makerstokyo/api/pkg/origin"
	"github.com/makerstokyo/api/pkg/ratelimit"
	"github.com/makerstokyo/api/pkg/signature"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apierror.Response {
	t.Helper()
	var body apierror.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRateLimit_FormPreset(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	store := ratelimit.NewMemoryStore(ratelimit.WithClock(c.Now))
	limiter := ratelimit.NewLimiter(store)
	h := RateLimit(limiter, ratelimit.PresetForm, RateLimitConfig{Now: c.Now})(okHandler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/contact/submissions", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		rec := send()
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get(HeaderRateLimitRemaining))
		c.Advance(time.Second)
	}

	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "57", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	body := decodeError(t, rec)
	assert.Equal(t, apierror.CodeRateLimitExceeded, body.Code)
	assert.Equal(t, 57, body.RetryAfter)
	assert.NotEmpty(t, body.Error)

	c.Advance(57 * time.Second)
	assert.Equal(t, http.StatusOK, send().Code)
}

func TestRateLimit_DifferentClientsIndependent(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	h := RateLimit(limiter, ratelimit.PresetStrict, RateLimitConfig{})(okHandler)

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/play", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}

type brokenStore struct{}

func (brokenStore) Check(context.Context, string, ratelimit.Config) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("connection refused")
}

func TestRateLimit_StoreFailure(t *testing.T) {
	limiter := ratelimit.NewLimiter(brokenStore{})

	rec := httptest.NewRecorder()
	RateLimit(limiter, ratelimit.PresetAPI, RateLimitConfig{FailOpen: true})(okHandler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	RateLimit(limiter, ratelimit.PresetAPI, RateLimitConfig{FailOpen: false})(okHandler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimit(nil, ratelimit.PresetStrict, RateLimitConfig{})(okHandler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
}

func TestRateLimit_UnknownPresetPanics(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	assert.Panics(t, func() { RateLimit(limiter, ratelimit.Preset("bogus"), RateLimitConfig{}) })
}

func TestRequireOrigin(t *testing.T) {
	guard := origin.NewGuard(origin.Config{Production: true})
	h := RequireOrigin(guard, nil)(okHandler)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "allowed origin", headers: map[string]string{"Origin": "https://makers.tokyo"}, want: http.StatusOK},
		{name: "allowed referer", headers: map[string]string{"Referer": "https://www.makers.tokyo/contact?x=1"}, want: http.StatusOK},
		{name: "foreign origin", headers: map[string]string{"Origin": "https://evil.example"}, want: http.StatusForbidden},
		{name: "origin wins over referer", headers: map[string]string{
			"Origin":  "https://evil.example",
			"Referer": "https://makers.tokyo/",
		}, want: http.StatusForbidden},
		{name: "prefix attack", headers: map[string]string{"Origin": "https://makers.tokyo.evil.example"}, want: http.StatusForbidden},
		{name: "no headers", want: http.StatusForbidden},
		{name: "dev origin in production", headers: map[string]string{"Origin": "http://localhost:3000"}, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/x/submissions", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				body := decodeError(t, rec)
				assert.Equal(t, apierror.InvalidOriginMessage, body.Error)
				assert.Equal(t, apierror.CodeInvalidOrigin, body.Code)
			}
		})
	}
}

type fakeVerifier struct {
	enabled bool
	siteKey string
	result  bool

	mu       sync.Mutex
	gotToken string
	gotIP    string
	calls    int
}

func (f *fakeVerifier) Enabled() bool   { return f.enabled }
func (f *fakeVerifier) SiteKey() string { return f.siteKey }

func (f *fakeVerifier) Verify(_ context.Context, token, remoteIP string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotToken = token
	f.gotIP = remoteIP
	return f.result
}

func TestRequireCaptcha_HeaderToken(t *testing.T) {
	v := &fakeVerifier{enabled: true, siteKey: "site", result: true}
	h := RequireCaptcha(v, func(*http.Request) string { return "192.0.2.7" }, nil)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTurnstileToken, "tok-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-1", v.gotToken)
	assert.Equal(t, "192.0.2.7", v.gotIP)
}

func TestRequireCaptcha_UnknownClientNotForwarded(t *testing.T) {
	v := &fakeVerifier{enabled: true, siteKey: "site", result: true}
	resolver := clientip.Resolver{TrustProxyHeaders: true}
	h := RequireCaptcha(v, resolver.Resolve, nil)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderTurnstileToken, "tok-3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, v.calls)
	assert.Empty(t, v.gotIP)
}

func TestRequireCaptcha_FormField(t *testing.T) {
	v := &fakeVerifier{enabled: true, siteKey: "site", result: true}
	h := RequireCaptcha(v, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Ada", r.FormValue("name"))
		w.WriteHeader(http.StatusCreated)
	}))

	form := url.Values{"name": {"Ada"}, FormFieldTurnstile: {"tok-2"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "tok-2", v.gotToken)
}

func TestRequireCaptcha_Rejected(t *testing.T) {
	v := &fakeVerifier{enabled: true, siteKey: "site", result: false}
	rec := httptest.NewRecorder()
	RequireCaptcha(v, nil, nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierror.CodeCaptchaFailed, decodeError(t, rec).Code)
}

func TestRequireCaptcha_SkippedWhenUnconfigured(t *testing.T) {
	v := &fakeVerifier{}
	rec := httptest.NewRecorder()
	RequireCaptcha(v, nil, nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, v.calls)
}

func TestRequireCaptcha_HalfConfiguredDefersToVerifier(t *testing.T) {
	v := &fakeVerifier{siteKey: "site", result: false}
	rec := httptest.NewRecorder()
	RequireCaptcha(v, nil, nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, v.calls)
}

func TestRequireSignature(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	signer := signature.NewSigner("0123456789abcdef0123456789abcdef",
		signature.WithClock(func() time.Time { return now }))

	var seen string
	h := RequireSignature(signer, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))

	body := `{"type":"form.reviewed","id":"abc"}`
	ts := signer.SignTimed(body)

	send := func(body, sig string, ts int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/events", strings.NewReader(body))
		req.Header.Set(HeaderSignature, sig)
		req.Header.Set(HeaderSignatureTimestamp, strconv.FormatInt(ts, 10))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := send(body, ts.Signature, ts.Timestamp)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, body, seen)

	rec = send(body+" ", ts.Signature, ts.Timestamp)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeInvalidSignature, decodeError(t, rec).Code)

	rec = send(body, ts.Signature, ts.Timestamp+1)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/events", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSignature_Expired(t *testing.T) {
	current := time.UnixMilli(1_700_000_000_000)
	signer := signature.NewSigner("0123456789abcdef0123456789abcdef",
		signature.WithClock(func() time.Time { return current }))
	ts := signer.SignTimed("payload")

	current = current.Add(signature.DefaultMaxAge + time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload"))
	req.Header.Set(HeaderSignature, ts.Signature)
	req.Header.Set(HeaderSignatureTimestamp, strconv.FormatInt(ts.Timestamp, 10))
	rec := httptest.NewRecorder()
	RequireSignature(signer, nil)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired signature", decodeError(t, rec).Error)
}

func TestGuardDecisionsCounted(t *testing.T) {
	before := testutil.ToFloat64(guardDecisions.WithLabelValues(GuardOrigin, OutcomeRejected))

	rec := httptest.NewRecorder()
	RequireOrigin(origin.NewGuard(origin.Config{Production: true}), nil)(okHandler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	after := testutil.ToFloat64(guardDecisions.WithLabelValues(GuardOrigin, OutcomeRejected))
	assert.Equal(t, before+1, after)
}
