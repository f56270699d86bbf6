package signature

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Query parameters carried by signed URLs.
const (
	ParamTimestamp = "ts"
	ParamSignature = "sig"
)

// Signer holds a key, a max age and a clock.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithMaxAge sets the freshness window for timed verification.
func WithMaxAge(d time.Duration) Option {
	return func(s *Signer) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner creates a Signer for secret.
func NewSigner(secret string, opts ...Option) *Signer {
	s := &Signer{
		secret: []byte(secret),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAge returns the configured freshness window.
func (s *Signer) MaxAge() time.Duration {
	return s.maxAge
}

// Sign returns the plain signature of data.
func (s *Signer) Sign(data string) string {
	return Generate(data, string(s.secret))
}

// Verify checks a plain signature.
func (s *Signer) Verify(data, signature string) bool {
	return check(data, signature, s.secret) == nil
}

// SignTimed returns a timed signature issued now.
func (s *Signer) SignTimed(data string) TimedSignature {
	return generateTimed(data, s.secret, s.now())
}

// VerifyTimed reports whether a timed signature is fresh and valid.
func (s *Signer) VerifyTimed(data, signature string, timestamp int64) bool {
	return s.CheckTimed(data, signature, timestamp) == nil
}

// CheckTimed is VerifyTimed returning the reason for rejection.
// The error is meant for logs, not for clients.
func (s *Signer) CheckTimed(data, signature string, timestamp int64) error {
	return checkTimed(data, signature, timestamp, s.secret, s.maxAge, s.now())
}

// CheckTimedHeader parses a decimal timestamp and calls CheckTimed.
func (s *Signer) CheckTimedHeader(data, signature, timestamp string) error {
	if signature == "" || timestamp == "" {
		return ErrMalformed
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformed
	}
	return s.CheckTimed(data, signature, ts)
}

// SignURL adds ts and sig query parameters to rawURL. The signature covers
// the escaped path and the remaining query parameters in sorted order.
func (s *Signer) SignURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Del(ParamTimestamp)
	q.Del(ParamSignature)

	ts := s.SignTimed(canonicalURL(u, q))
	q.Set(ParamTimestamp, strconv.FormatInt(ts.Timestamp, 10))
	q.Set(ParamSignature, ts.Signature)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifyURL checks a URL produced by SignURL. Scheme and host are not covered,
// so the same link verifies behind any host name.
func (s *Signer) VerifyURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ErrMalformed
	}
	return s.VerifyRequestURL(u)
}

// VerifyRequestURL is VerifyURL for an already parsed URL, such as r.URL.
func (s *Signer) VerifyRequestURL(u *url.URL) error {
	q := u.Query()
	sig := q.Get(ParamSignature)
	ts := q.Get(ParamTimestamp)
	q.Del(ParamTimestamp)
	q.Del(ParamSignature)
	return s.CheckTimedHeader(canonicalURL(u, q), sig, ts)
}

func canonicalURL(u *url.URL, q url.Values) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path + "?" + q.Encode()
}
