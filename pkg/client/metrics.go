package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, errors.New("metrics registerer is nil")
	}
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmclient_odata_requests_total",
			Help: "Total OData requests by operation and response status.",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cmclient_odata_request_duration_seconds",
			Help:    "OData request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	for _, col := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// observe is a no-op on a nil receiver so callers need not check whether
// metrics are enabled.
func (m *metrics) observe(op, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
