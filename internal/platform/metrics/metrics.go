package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "remittances"

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Realtime instruments the in-process event hub.
type Realtime struct {
	Subscribers prometheus.Gauge
	Published   *prometheus.CounterVec
	Delivered   *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
}

func NewRealtime(reg prometheus.Registerer) *Realtime {
	m := &Realtime{
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Number of open realtime subscriptions",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Total number of events published to the hub",
		}, []string{"kind"}),
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Total number of events handed to subscribers",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped because a subscriber was not keeping up",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Subscribers, m.Published, m.Delivered, m.Dropped)
	}
	return m
}

// Alerts instruments the SLA alert scheduler.
type Alerts struct {
	Ticks        *prometheus.CounterVec
	Emitted      prometheus.Counter
	Suppressed   prometheus.Counter
	TickDuration prometheus.Histogram
}

func NewAlerts(reg prometheus.Registerer) *Alerts {
	m := &Alerts{
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks by outcome",
		}, []string{"outcome"}),
		Emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "emitted_total",
			Help:      "Total number of SLA alerts emitted",
		}),
		Suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Total number of SLA alerts suppressed by the dedup window",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "tick_duration_seconds",
			Help:      "Duration of scheduler ticks",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Ticks, m.Emitted, m.Suppressed, m.TickDuration)
	}
	return m
}
