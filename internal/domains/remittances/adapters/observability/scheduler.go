package observability

import (
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/application"
	"github.com/remesas/remittance-api/internal/platform/metrics"
)

// TickMetrics reports alert scheduler ticks to Prometheus.
type TickMetrics struct {
	m *metrics.Alerts
}

func NewTickMetrics(m *metrics.Alerts) *TickMetrics {
	return &TickMetrics{m: m}
}

func (t *TickMetrics) ObserveTick(result application.TickResult, elapsed time.Duration, err error) {
	if t == nil || t.m == nil {
		return
	}
	switch {
	case result.Skipped:
		t.m.Ticks.WithLabelValues("skipped").Inc()
		return
	case err != nil:
		t.m.Ticks.WithLabelValues("failed").Inc()
	default:
		t.m.Ticks.WithLabelValues("completed").Inc()
	}
	t.m.TickDuration.Observe(elapsed.Seconds())
	t.m.Emitted.Add(float64(result.Emitted))
	t.m.Suppressed.Add(float64(result.Suppressed))
}

var _ application.TickObserver = (*TickMetrics)(nil)
