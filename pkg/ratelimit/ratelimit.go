// Package ratelimit implements fixed-window request limiting.
//
// A window opens on the first request for a key and lasts Config.Window.
// Up to Config.Limit requests are admitted inside it; later requests are
// rejected without touching the counter. Windows do not slide, so a caller
// can land up to 2×Limit requests around a window boundary.
//
// The in-memory store keeps its counters per process. Behind N instances the
// effective limit is up to N×Limit; use a shared Store (see
// internal/infra/redis) when that matters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Preset names a predefined limit.
type Preset string

// Predefined presets, from most to least permissive.
const (
	PresetAPI    Preset = "api"
	PresetAuth   Preset = "auth"
	PresetForm   Preset = "form"
	PresetStrict Preset = "strict"
)

// ErrUnknownPreset is returned by LookupPreset for names outside the preset set.
var ErrUnknownPreset = errors.New("unknown rate limit preset")

// ErrInvalidConfig is returned when a Config has a non-positive limit or window.
var ErrInvalidConfig = errors.New("invalid rate limit config")

// Config is an immutable limit: Limit requests per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Validate checks that both fields are positive.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

var presets = map[Preset]Config{
	PresetAuth:   {Limit: 5, Window: time.Minute},
	PresetForm:   {Limit: 3, Window: time.Minute},
	PresetAPI:    {Limit: 30, Window: time.Minute},
	PresetStrict: {Limit: 1, Window: time.Minute},
}

// LookupPreset returns the Config for a preset name.
func LookupPreset(p Preset) (Config, error) {
	cfg, ok := presets[p]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, p)
	}
	return cfg, nil
}

// Presets returns a copy of the preset table.
func Presets() map[Preset]Config {
	out := make(map[Preset]Config, len(presets))
	for k, v := range presets {
		out[k] = v
	}
	return out
}

// Record is the counter state for one key.
// Once now >= ResetTime the record is expired and gets replaced, never incremented.
type Record struct {
	Count     int
	ResetTime time.Time
}

// Expired reports whether the record's window has elapsed at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ResetTime)
}

// Decision is the outcome of one check. It is never stored.
type Decision struct {
	Success   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RetryAfterSeconds returns ceil(ResetIn) in whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.ResetIn <= 0 {
		return 0
	}
	return int(math.Ceil(d.ResetIn.Seconds()))
}

// ResetInMillis returns ResetIn in milliseconds.
func (d Decision) ResetInMillis() int64 {
	return d.ResetIn.Milliseconds()
}

// Store evaluates and records one request against cfg for key.
type Store interface {
	Check(ctx context.Context, key string, cfg Config) (Decision, error)
}

// Key joins an identifier and endpoint path into a store key.
func Key(identifier, endpoint string) string {
	return identifier + ":" + endpoint
}
