package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func countLines(buf *bytes.Buffer) int {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func TestSamplingHandler_Disabled(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)

	h := NewSamplingHandler(base, SamplingConfig{Enabled: false})
	if h != slog.Handler(base) {
		t.Fatal("disabled sampling should return the base handler")
	}

	log := slog.New(h)
	for i := 0; i < 200; i++ {
		log.Info("rate limit exceeded")
	}
	if n := countLines(&buf); n != 200 {
		t.Errorf("expected 200 lines, got %d", n)
	}
}

func TestSamplingHandler_ThresholdThenRate(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 10,
		Rate:      0.5,
		ErrorRate: 1.0,
	}))

	for i := 0; i < 110; i++ {
		log.Info("form submitted")
	}
	// 10 under threshold, then every second of counts 11..110.
	if n := countLines(&buf); n != 60 {
		t.Errorf("expected 60 lines, got %d", n)
	}
}

func TestSamplingHandler_WarningsKeptByErrorRate(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 5,
		Rate:      0.0,
		ErrorRate: 1.0,
	}))

	for i := 0; i < 50; i++ {
		log.Warn("origin rejected")
		log.Info("noise")
	}
	out := buf.String()
	if got := strings.Count(out, "origin rejected"); got != 50 {
		t.Errorf("expected all 50 warnings, got %d", got)
	}
	if got := strings.Count(out, "noise"); got != 5 {
		t.Errorf("expected 5 info lines, got %d", got)
	}
}

func TestSamplingHandler_TickReset(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	log := slog.New(newSamplingHandler(slog.NewJSONHandler(&buf, nil), SamplingConfig{
		Enabled:   true,
		Tick:      time.Second,
		Threshold: 3,
		Rate:      0.0,
	}, clock))

	for i := 0; i < 10; i++ {
		log.Info("tick")
	}
	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	for i := 0; i < 10; i++ {
		log.Info("tick")
	}
	if n := countLines(&buf); n != 6 {
		t.Errorf("expected 6 lines across two ticks, got %d", n)
	}
}

func TestSamplingHandler_NeverSample(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), SamplingConfig{
		Enabled:     true,
		Tick:        time.Minute,
		Threshold:   1,
		Rate:        0.0,
		NeverSample: []string{"security:"},
	}))

	for i := 0; i < 20; i++ {
		log.Info("security: signature rejected")
	}
	if n := countLines(&buf); n != 20 {
		t.Errorf("expected 20 lines, got %d", n)
	}
}

func TestSamplingHandler_SharedStateAcrossWith(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 2,
		Rate:      0.0,
	}))

	for i := 0; i < 10; i++ {
		log.With("request_id", i).Info("same message")
	}
	if n := countLines(&buf); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

func TestSamplingHandler_MetricsOnDrop(t *testing.T) {
	before := DroppedTotal("debug")
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}), SamplingConfig{
		Enabled:       true,
		Tick:          time.Minute,
		Threshold:     1,
		Rate:          0.0,
		EnableMetrics: true,
	}))
	for i := 0; i < 5; i++ {
		log.Debug("dropped")
	}
	if got := DroppedTotal("debug") - before; got != 4 {
		t.Errorf("expected 4 dropped, got %v", got)
	}
}
