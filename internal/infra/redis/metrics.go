package redis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Redis operation metrics of this process.
type Metrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	windows  *prometheus.CounterVec
}

// DefaultMetrics is registered with the default Prometheus registerer.
var DefaultMetrics = NewMetrics(promauto.With(prometheus.DefaultRegisterer))

// NewMetrics creates the metrics through factory.
func NewMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "guard",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
		}, []string{"operation"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guard",
			Subsystem: "redis",
			Name:      "operation_errors_total",
			Help:      "Redis operations that returned an error.",
		}, []string{"operation"}),
		windows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guard",
			Subsystem: "redis",
			Name:      "ratelimit_checks_total",
			Help:      "Shared fixed-window checks by result.",
		}, []string{"result"}),
	}
}

// Operation labels.
const (
	opRateLimitCheck = "ratelimit_check"
	opStreamPublish  = "stream_publish"
)

func (m *Metrics) observe(op string, start time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) window(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.windows.WithLabelValues(result).Inc()
}

// poolCollector exports connection pool statistics at scrape time.
type poolCollector struct {
	client *Client
	total  *prometheus.Desc
	idle   *prometheus.Desc
	stale  *prometheus.Desc
	waits  *prometheus.Desc
}

func newPoolCollector(client *Client) *poolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("guard", "redis_pool", name), help, nil, nil)
	}
	return &poolCollector{
		client: client,
		total:  desc("connections", "Connections in the pool."),
		idle:   desc("idle_connections", "Idle connections in the pool."),
		stale:  desc("stale_connections_total", "Connections removed as stale."),
		waits:  desc("timeouts_total", "Waits for a free connection that timed out."),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.stale
	ch <- c.waits
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.client.PoolStats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.stale, prometheus.CounterValue, float64(s.StaleConns))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.Timeouts))
}

// RegisterPoolCollector exports client's pool statistics through reg. The
// returned function unregisters it.
func RegisterPoolCollector(reg prometheus.Registerer, client *Client) (func(), error) {
	c := newPoolCollector(client)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return func() { reg.Unregister(c) }, nil
}
