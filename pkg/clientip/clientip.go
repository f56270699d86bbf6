// Package clientip derives a caller identifier from request metadata.
//
// The identifier is an opaque bucketing key. It is not validated as an IP
// address and must not be used for trust decisions: forwarded headers are
// taken verbatim, which is only safe when the service sits behind a single
// trusted reverse proxy that overwrites them on the way in. Deployments
// without such a proxy should use FromPeer instead.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is returned when no identifying header is present.
const Unknown = "unknown"

// Header names consulted, in priority order.
const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderRealIP         = "X-Real-IP"
)

// FromHeaders returns the first entry of X-Forwarded-For, then
// CF-Connecting-IP, then X-Real-IP, then Unknown. An empty first hop counts
// as absent.
func FromHeaders(h http.Header) string {
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if cf := strings.TrimSpace(h.Get(HeaderCFConnectingIP)); cf != "" {
		return cf
	}
	if real := strings.TrimSpace(h.Get(HeaderRealIP)); real != "" {
		return real
	}
	return Unknown
}

// FromRequest is FromHeaders applied to r.Header.
func FromRequest(r *http.Request) string {
	return FromHeaders(r.Header)
}

// FromPeer returns the TCP peer address without its port, ignoring headers.
func FromPeer(r *http.Request) string {
	if r.RemoteAddr == "" {
		return Unknown
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Resolver picks between header-based and peer-based resolution.
type Resolver struct {
	TrustProxyHeaders bool
}

// Resolve returns the identifier for r.
func (res Resolver) Resolve(r *http.Request) string {
	if res.TrustProxyHeaders {
		return FromRequest(r)
	}
	return FromPeer(r)
}
