package logger

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Sampler outcomes.
const (
	outcomeKept    = "kept"
	outcomeDropped = "dropped"
)

var (
	sampledLogs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guard",
		Subsystem: "logger",
		Name:      "sampled_records_total",
		Help:      "Log records seen by the sampler, by level and outcome.",
	}, []string{"level", "outcome"})

	samplingKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "guard",
		Subsystem: "logger",
		Name:      "sampling_keys",
		Help:      "Distinct messages tracked in the current sampling tick.",
	})

	registerOnce sync.Once
)

// RegisterMetrics registers the sampler metrics with reg, or the default
// registerer when nil. Only the first call has an effect.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		_ = reg.Register(sampledLogs)
		_ = reg.Register(samplingKeys)
	})
}

func recordSampled(level slog.Level, kept bool) {
	outcome := outcomeDropped
	if kept {
		outcome = outcomeKept
	}
	sampledLogs.WithLabelValues(levelLabel(level), outcome).Inc()
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// DroppedTotal returns how many records of level ("debug", "info", "warn",
// "error") the sampler has dropped.
func DroppedTotal(level string) float64 {
	var m dto.Metric
	if err := sampledLogs.WithLabelValues(level, outcomeDropped).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
