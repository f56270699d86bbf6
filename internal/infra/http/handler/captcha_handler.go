package handler

import (
	"net/http"
)

// CaptchaConfigSource exposes the public half of the captcha configuration.
type CaptchaConfigSource interface {
	Enabled() bool
	SiteKey() string
}

// CaptchaHandler tells clients whether to render a challenge.
type CaptchaHandler struct {
	source CaptchaConfigSource
}

// NewCaptchaHandler creates a new CaptchaHandler.
func NewCaptchaHandler(source CaptchaConfigSource) *CaptchaHandler {
	return &CaptchaHandler{source: source}
}

// CaptchaConfigResponse is the public captcha configuration. The secret key
// never leaves the server.
type CaptchaConfigResponse struct {
	Enabled bool   `json:"enabled"`
	SiteKey string `json:"siteKey,omitempty"`
}

// Config handles GET /api/v1/captcha/config.
func (h *CaptchaHandler) Config(w http.ResponseWriter, _ *http.Request) {
	resp := CaptchaConfigResponse{Enabled: h.source.Enabled()}
	if resp.Enabled {
		resp.SiteKey = h.source.SiteKey()
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
