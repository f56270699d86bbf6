package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "first forwarded hop wins",
			headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 , 10.0.0.1", "CF-Connecting-IP": "5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:    "single forwarded entry",
			headers: map[string]string{"X-Forwarded-For": "9.9.9.9"},
			want:    "9.9.9.9",
		},
		{
			name:    "cdn header before real ip",
			headers: map[string]string{"CF-Connecting-IP": "5.6.7.8", "X-Real-IP": "7.7.7.7"},
			want:    "5.6.7.8",
		},
		{
			name:    "real ip",
			headers: map[string]string{"X-Real-IP": "7.7.7.7"},
			want:    "7.7.7.7",
		},
		{
			name:    "empty first hop falls through",
			headers: map[string]string{"X-Forwarded-For": " , 1.1.1.1", "X-Real-IP": "7.7.7.7"},
			want:    "7.7.7.7",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    Unknown,
		},
		{
			name:    "value is opaque",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:    "not-an-ip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, FromHeaders(h))
		})
	}
}

func TestResolver(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "1.2.3.4", Resolver{TrustProxyHeaders: true}.Resolve(req))
	assert.Equal(t, "192.0.2.10", Resolver{TrustProxyHeaders: false}.Resolve(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", FromPeer(req))

	req.RemoteAddr = ""
	assert.Equal(t, Unknown, FromPeer(req))
}
