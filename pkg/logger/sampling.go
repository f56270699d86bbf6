package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SamplingConfig configures log sampling.
type SamplingConfig struct {
	Enabled bool

	// Tick is the interval after which counters reset.
	Tick time.Duration

	// Threshold is how many records with the same level and message pass
	// per tick before sampling starts.
	Threshold uint64

	// Rate is the fraction of info/debug records kept past the threshold.
	Rate float64

	// ErrorRate is the fraction of warn/error records kept past the threshold.
	ErrorRate float64

	// MaxKeys caps the number of distinct messages tracked per tick. Records
	// beyond it pass unsampled.
	MaxKeys int

	// NeverSample lists message prefixes that always pass.
	NeverSample []string

	// EnableMetrics exports processed and dropped counts to Prometheus.
	EnableMetrics bool
}

// Sampling defaults.
const (
	DefaultSamplingTick      = time.Second
	DefaultSamplingThreshold = 100
	DefaultSamplingRate      = 0.1
	DefaultSamplingErrorRate = 1.0
	DefaultSamplingMaxKeys   = 10000
)

// DefaultSamplingConfig returns production defaults, disabled.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Tick:      DefaultSamplingTick,
		Threshold: DefaultSamplingThreshold,
		Rate:      DefaultSamplingRate,
		ErrorRate: DefaultSamplingErrorRate,
		MaxKeys:   DefaultSamplingMaxKeys,
	}
}

// samplingState is shared between a handler and its WithAttrs/WithGroup children.
type samplingState struct {
	mu        sync.Mutex
	counts    map[string]uint64
	lastReset time.Time
	now       func() time.Time
}

type samplingHandler struct {
	handler slog.Handler
	config  SamplingConfig
	state   *samplingState
}

// NewSamplingHandler wraps h so that after Threshold identical records in
// one Tick only every 1/Rate-th record is passed on. It returns h unchanged
// when sampling is disabled.
func NewSamplingHandler(h slog.Handler, cfg SamplingConfig) slog.Handler {
	return newSamplingHandler(h, cfg, time.Now)
}

func newSamplingHandler(h slog.Handler, cfg SamplingConfig, now func() time.Time) slog.Handler {
	if !cfg.Enabled {
		return h
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultSamplingTick
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultSamplingThreshold
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultSamplingMaxKeys
	}
	return &samplingHandler{
		handler: h,
		config:  cfg,
		state: &samplingState{
			counts:    make(map[string]uint64),
			lastReset: now(),
			now:       now,
		},
	}
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	kept := h.keep(r)
	if h.config.EnableMetrics {
		recordSampled(r.Level, kept)
	}
	if !kept {
		return nil
	}
	return h.handler.Handle(ctx, r)
}

func (h *samplingHandler) keep(r slog.Record) bool {
	for _, prefix := range h.config.NeverSample {
		if strings.HasPrefix(r.Message, prefix) {
			return true
		}
	}

	s := h.state
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastReset) >= h.config.Tick {
		s.counts = make(map[string]uint64)
		s.lastReset = now
	}
	key := r.Level.String() + ":" + r.Message
	count, tracked := s.counts[key]
	if !tracked && len(s.counts) >= h.config.MaxKeys {
		s.mu.Unlock()
		return true
	}
	count++
	s.counts[key] = count
	size := len(s.counts)
	s.mu.Unlock()

	if h.config.EnableMetrics {
		samplingKeys.Set(float64(size))
	}

	if count <= h.config.Threshold {
		return true
	}
	rate := h.config.Rate
	if r.Level >= slog.LevelWarn {
		rate = h.config.ErrorRate
	}
	return sampled(count, rate)
}

func sampled(count uint64, rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}
	interval := uint64(1.0 / rate)
	return count%interval == 0
}

func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &samplingHandler{handler: h.handler.WithAttrs(attrs), config: h.config, state: h.state}
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	return &samplingHandler{handler: h.handler.WithGroup(name), config: h.config, state: h.state}
}
