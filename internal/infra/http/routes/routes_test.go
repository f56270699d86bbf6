package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerstokyo/api/internal/app"
	"github.com/makerstokyo/api/internal/config"
	infrahttp "github.com/makerstokyo/api/internal/infra/http"
	"github.com/makerstokyo/api/internal/infra/http/handler"
	"github.com/makerstokyo/api/internal/infra/http/middleware"
	"github.com/makerstokyo/api/internal/infra/http/routes"
	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/clientip"
	"github.com/makerstokyo/api/pkg/logger"
	"github.com/makerstokyo/api/pkg/origin"
	"github.com/makerstokyo/api/pkg/ratelimit"
	"github.com/makerstokyo/api/pkg/signature"
	"github.com/makerstokyo/api/pkg/validator"
)

const (
	allowedOrigin = "https://makers.example"
	testSecret    = "routes-test-secret"
)

type staticVerifier struct{ ok bool }

func (staticVerifier) Enabled() bool                                { return true }
func (staticVerifier) SiteKey() string                              { return "0x4AAA" }
func (v staticVerifier) Verify(context.Context, string, string) bool { return v.ok }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "guard-api", Env: config.EnvDevelopment, PublicBaseURL: allowedOrigin},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 5 * time.Second,
			MaxBodySize:    64 << 10,
		},
		Log: config.LogConfig{Level: "error", Format: "json"},
		CORS: config.CORSConfig{
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Turnstile-Token"},
			MaxAge:         600,
		},
	}
}

type testServer struct {
	handler http.Handler
	router  routes.Router
	signer  *signature.Signer
}

func newTestServer(t *testing.T, captchaOK bool) *testServer {
	t.Helper()
	cfg := testConfig()
	log := logger.NewNop()
	v := validator.New()
	sink := app.NewLogSink(log)
	guard := origin.NewGuardWithList([]string{allowedOrigin})
	signer := signature.NewSigner(testSecret)
	resolver := clientip.Resolver{TrustProxyHeaders: true}

	server := infrahttp.NewServer(cfg, guard, log)
	routes.Register(server.Router(), routes.Handlers{
		Health:   handler.NewHealthHandler(),
		Captcha:  handler.NewCaptchaHandler(staticVerifier{ok: captchaOK}),
		Intake:   handler.NewIntakeHandler(app.NewIntakeService(sink, v, log), resolver.Resolve, log),
		Campaign: handler.NewCampaignHandler(app.NewCampaignService(sink, v, log), resolver.Resolve, log),
		Callback: handler.NewCallbackHandler(app.NewCallbackService(signer, cfg.App.PublicBaseURL, sink, v, log), true, log),
		Event:    handler.NewEventHandler(app.NewEventService(sink, v, log), log),
	}, routes.Guards{
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.WithIdentifier(resolver.Resolve)),
		Origin:   guard,
		Captcha:  staticVerifier{ok: captchaOK},
		RemoteIP: resolver.Resolve,
		Signer:   signer,
		Logger:   log,
	})

	return &testServer{handler: server.Handler(), router: server.Router(), signer: signer}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func submission(ip, requestOrigin string) *http.Request {
	return submissionTo("/api/v1/forms/contact/submissions", ip, requestOrigin)
}

func submissionTo(target, ip, requestOrigin string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target,
		strings.NewReader(`{"name":"Grace","email":"grace@example.com","message":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip)
	req.Header.Set(middleware.HeaderTurnstileToken, "token")
	if requestOrigin != "" {
		req.Header.Set("Origin", requestOrigin)
	}
	return req
}

func TestFormSubmission_GuardChain(t *testing.T) {
	s := newTestServer(t, true)

	for i := 1; i <= 3; i++ {
		rec := s.do(submission("203.0.113.1", allowedOrigin))
		require.Equal(t, http.StatusCreated, rec.Code, "call %d: %s", i, rec.Body.String())
		assert.Equal(t, strconv.Itoa(3-i), rec.Header().Get(middleware.HeaderRateLimitRemaining))
		assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec := s.do(submission("203.0.113.1", allowedOrigin))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	rec = s.do(submission("203.0.113.2", allowedOrigin))
	assert.Equal(t, http.StatusCreated, rec.Code, "other clients keep their own window")
}

func TestFormSubmission_RateLimitRunsBeforeOrigin(t *testing.T) {
	s := newTestServer(t, true)

	for i := 0; i < 3; i++ {
		rec := s.do(submission("203.0.113.5", "https://evil.example"))
		require.Equal(t, http.StatusForbidden, rec.Code)

		var body apierror.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apierror.InvalidOriginMessage, body.Error)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec := s.do(submission("203.0.113.5", "https://evil.example"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFormSubmission_PathVariantsShareWindow(t *testing.T) {
	s := newTestServer(t, true)

	for i := 1; i <= 3; i++ {
		rec := s.do(submission("203.0.113.20", allowedOrigin))
		require.Equal(t, http.StatusCreated, rec.Code, "call %d: %s", i, rec.Body.String())
	}

	for _, target := range []string{
		"/api/v1/forms/contact/submissions/",
		"//api/v1/forms/contact/submissions",
		"/api//v1/forms/contact/submissions",
		"/api/v1/./forms/contact/submissions",
	} {
		rec := s.do(submissionTo(target, "203.0.113.20", allowedOrigin))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, target)
	}
}

func TestFormSubmission_CaptchaRejected(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(submission("203.0.113.9", allowedOrigin))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body apierror.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierror.CodeCaptchaFailed, body.Code)
}

func TestMagicLink_NoOriginRejected(t *testing.T) {
	s := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/magic-link", strings.NewReader(`{"email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := s.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInternalEvents_Signature(t *testing.T) {
	s := newTestServer(t, true)
	body := []byte(`{"type":"newsletter.sent","data":{"recipients":3}}`)

	t.Run("signed", func(t *testing.T) {
		ts := s.signer.SignTimed(string(body))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/events", bytes.NewReader(body))
		req.Header.Set(middleware.HeaderSignature, ts.Signature)
		req.Header.Set(middleware.HeaderSignatureTimestamp, strconv.FormatInt(ts.Timestamp, 10))

		rec := s.do(req)
		assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	})

	t.Run("signed by someone else", func(t *testing.T) {
		ts := signature.NewSigner("other-secret").SignTimed(string(body))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/events", bytes.NewReader(body))
		req.Header.Set(middleware.HeaderSignature, ts.Signature)
		req.Header.Set(middleware.HeaderSignatureTimestamp, strconv.FormatInt(ts.Timestamp, 10))

		rec := s.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unsigned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/events", bytes.NewReader(body))
		rec := s.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t, true)

	for _, path := range []string{"/health", "/ready", "/metrics", "/api/v1/captcha/config"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		method, path string
		status       int
		code         apierror.Code
	}{
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound, apierror.CodeNotFound},
		{http.MethodDelete, "/api/v1/auth/magic-link", http.StatusMethodNotAllowed, apierror.CodeMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)

			var body apierror.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestRouteListing(t *testing.T) {
	s := newTestServer(t, true)
	listed := infrahttp.CollectRoutes(s.router)

	var buf bytes.Buffer
	require.NoError(t, infrahttp.PrintRoutes(&buf, listed, "simple", infrahttp.RouteFilters{Method: "post"}))

	out := buf.String()
	assert.Contains(t, out, "POST /api/v1/forms/{formID}/submissions\n")
	assert.Contains(t, out, "POST /api/v1/campaigns/{campaignID}/plays\n")
	assert.Contains(t, out, "POST /api/v1/auth/magic-link\n")
	assert.Contains(t, out, "POST /api/v1/internal/events\n")
	assert.NotContains(t, out, "GET ")
}
