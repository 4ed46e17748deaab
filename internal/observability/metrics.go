package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes engine and route counters. Registration happens once
// per process; repeated NewMetrics calls return the same instance.
type Metrics struct {
	ActionsReceived  prometheus.Counter
	ActionsApplied   *prometheus.CounterVec
	ActionsDropped   prometheus.Counter
	ImagesCreated    prometheus.Counter
	RetriesScheduled prometheus.Counter
	ProviderErrors   *prometheus.CounterVec
	RouteRequests    *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			ActionsReceived: promauto.NewCounter(prometheus.CounterOpts{
				Name: "canvas_agent_actions_received_total",
				Help: "Total number of action envelopes received from the stream",
			}),
			ActionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_actions_applied_total",
				Help: "Total number of completed actions applied, by kind",
			}, []string{"kind"}),
			ActionsDropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "canvas_agent_actions_dropped_total",
				Help: "Total number of envelopes dropped (unknown kind or protocol violation)",
			}),
			ImagesCreated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "canvas_agent_images_created_total",
				Help: "Total number of image asset/shape pairs committed",
			}),
			RetriesScheduled: promauto.NewCounter(prometheus.CounterOpts{
				Name: "canvas_agent_image_retries_scheduled_total",
				Help: "Total number of corrective retry hints scheduled",
			}),
			ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_provider_errors_total",
				Help: "Total number of external provider call failures, by provider",
			}, []string{"provider"}),
			RouteRequests: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_route_requests_total",
				Help: "Total number of backend route requests, by route and status class",
			}, []string{"route", "status"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) RecordReceived() {
	if m == nil {
		return
	}
	m.ActionsReceived.Inc()
}

func (m *Metrics) RecordApplied(kind string) {
	if m == nil {
		return
	}
	m.ActionsApplied.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.ActionsDropped.Inc()
}

func (m *Metrics) RecordImageCreated() {
	if m == nil {
		return
	}
	m.ImagesCreated.Inc()
}

func (m *Metrics) RecordRetryScheduled() {
	if m == nil {
		return
	}
	m.RetriesScheduled.Inc()
}

func (m *Metrics) RecordProviderError(provider string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordRoute(route, status string) {
	if m == nil {
		return
	}
	m.RouteRequests.WithLabelValues(route, status).Inc()
}
