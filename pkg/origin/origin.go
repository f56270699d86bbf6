// Package origin checks browser Origin and Referer headers against an
// exact-match allow-list.
//
// The check is a same-site filter for browser traffic. Non-browser clients
// can forge both headers, and requests carrying neither are always rejected;
// server-to-server calls authenticate with package signature instead.
package origin

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DefaultOrigins are used when no explicit allow-list is configured.
var DefaultOrigins = []string{
	"https://makers.tokyo",
	"https://www.makers.tokyo",
}

// DevelopmentOrigins are appended outside production.
var DevelopmentOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Config is the environment input for the allow-list.
type Config struct {
	// AllowedOrigins replaces DefaultOrigins when non-empty.
	AllowedOrigins []string
	// PreviewHost is a preview deployment host name, added as https://<host>.
	PreviewHost string
	// Production disables DevelopmentOrigins.
	Production bool
}

// BuildAllowList returns the ordered, de-duplicated allow-list for cfg.
func BuildAllowList(cfg Config) []string {
	var list []string
	seen := make(map[string]struct{})
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			return
		}
		if _, ok := seen[o]; ok {
			return
		}
		seen[o] = struct{}{}
		list = append(list, o)
	}

	explicit := cfg.AllowedOrigins
	if len(explicit) == 0 {
		explicit = DefaultOrigins
	}
	for _, o := range explicit {
		add(o)
	}

	if host := strings.TrimSpace(cfg.PreviewHost); host != "" {
		if strings.Contains(host, "://") {
			add(host)
		} else {
			add("https://" + host)
		}
	}

	if !cfg.Production {
		for _, o := range DevelopmentOrigins {
			add(o)
		}
	}
	return list
}

// Guard holds a fixed allow-list. It is safe for concurrent use.
type Guard struct {
	allowed []string
	set     map[string]struct{}
}

// NewGuard builds the allow-list once from cfg.
func NewGuard(cfg Config) *Guard {
	return NewGuardWithList(BuildAllowList(cfg))
}

// NewGuardWithList uses list verbatim.
func NewGuardWithList(list []string) *Guard {
	g := &Guard{
		allowed: append([]string(nil), list...),
		set:     make(map[string]struct{}, len(list)),
	}
	for _, o := range list {
		g.set[o] = struct{}{}
	}
	return g
}

// AllowedOrigins returns a copy of the allow-list.
func (g *Guard) AllowedOrigins() []string {
	return append([]string(nil), g.allowed...)
}

// IsAllowed reports whether origin exactly equals an entry.
func (g *Guard) IsAllowed(origin string) bool {
	_, ok := g.set[origin]
	return ok
}

// Verify reports whether r comes from an allowed origin.
func (g *Guard) Verify(r *http.Request) bool {
	ok, _ := g.Check(r)
	return ok
}

// Check is Verify that also returns the origin it judged, for logging.
// The Origin header takes precedence; otherwise the Referer is reduced to
// its scheme://host[:port] component. A malformed Referer or no header at
// all is rejected.
func (g *Guard) Check(r *http.Request) (bool, string) {
	if o := r.Header.Get("Origin"); o != "" {
		return g.IsAllowed(o), o
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return false, ""
	}
	o, ok := RefererOrigin(ref)
	if !ok {
		return false, ""
	}
	return g.IsAllowed(o), o
}

// RefererOrigin returns the origin component of an absolute referer URL.
// Default ports are dropped and scheme and host are lower-cased.
func RefererOrigin(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return scheme + "://" + host + ":" + port, true
	}
	return scheme + "://" + host, true
}

// Site returns the registrable domain (eTLD+1) of an origin, or the bare host
// when it has none, such as localhost or an IP. Used to label rejections
// without recording full attacker-controlled strings.
func Site(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return "invalid"
	}
	host := u.Hostname()
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}
