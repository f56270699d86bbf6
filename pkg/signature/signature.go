// Package signature signs and verifies payloads with HMAC-SHA256.
//
// Signatures are Base64 (standard alphabet) encoded and compared in constant
// time. The timed variant binds a millisecond timestamp into the signed
// payload as "data:timestamp" and rejects stale timestamps before doing any
// cryptographic work.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"
)

// DefaultMaxAge is the freshness window for timed signatures.
const DefaultMaxAge = 5 * time.Minute

var (
	// ErrEmptySecret is returned when verifying with an empty key.
	ErrEmptySecret = errors.New("signature secret is empty")
	// ErrExpired is returned when a timed signature is older than the max age.
	ErrExpired = errors.New("signature expired")
	// ErrInvalidSignature is returned when the signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformed is returned when signature or timestamp cannot be parsed.
	ErrMalformed = errors.New("malformed signature")
)

// TimedSignature is a signature bound to the epoch-millisecond time it was issued.
type TimedSignature struct {
	Signature string `json:"signature" yaml:"signature"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

// Generate returns the Base64 HMAC-SHA256 of data keyed by secret.
func Generate(data, secret string) string {
	return base64.StdEncoding.EncodeToString(mac([]byte(data), []byte(secret)))
}

// Verify reports whether signature is the HMAC of data under secret.
// Any decoding problem yields false.
func Verify(data, signature, secret string) bool {
	return check(data, signature, []byte(secret)) == nil
}

// GenerateTimed signs data with the current time.
func GenerateTimed(data, secret string) TimedSignature {
	return generateTimed(data, []byte(secret), time.Now())
}

// VerifyTimed checks freshness first, then the signature over "data:timestamp".
// A non-positive maxAge means DefaultMaxAge.
func VerifyTimed(data, signature string, timestamp int64, secret string, maxAge time.Duration) bool {
	return checkTimed(data, signature, timestamp, []byte(secret), maxAge, time.Now()) == nil
}

// TimedPayload returns the string that a timed signature covers.
func TimedPayload(data string, timestamp int64) string {
	return data + ":" + strconv.FormatInt(timestamp, 10)
}

func mac(data, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(data)
	return h.Sum(nil)
}

func check(data, signature string, secret []byte) error {
	if len(secret) == 0 {
		return ErrEmptySecret
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrMalformed
	}
	if !hmac.Equal(mac([]byte(data), secret), got) {
		return ErrInvalidSignature
	}
	return nil
}

func generateTimed(data string, secret []byte, now time.Time) TimedSignature {
	ts := now.UnixMilli()
	sig := base64.StdEncoding.EncodeToString(mac([]byte(TimedPayload(data, ts)), secret))
	return TimedSignature{Signature: sig, Timestamp: ts}
}

func checkTimed(data, signature string, timestamp int64, secret []byte, maxAge time.Duration, now time.Time) error {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now.UnixMilli()-timestamp > maxAge.Milliseconds() {
		return ErrExpired
	}
	return check(TimedPayload(data, timestamp), signature, secret)
}
