package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outbox relay batches.
type PublisherMetrics struct {
	duration  prometheus.Histogram
	published prometheus.Counter
	failed    *prometheus.CounterVec
}

// NewPublisherMetrics registers the outbox relay metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events relayed to Pub/Sub.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox events that failed to publish.",
	}, []string{"reason"})
	reg.MustRegister(duration, published, failed)
	return &PublisherMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
	}
}

// ObserveBatch records the duration of one publish batch.
func (p *PublisherMetrics) ObserveBatch(duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.Observe(duration.Seconds())
}

// IncPublished counts a relayed event.
func (p *PublisherMetrics) IncPublished() {
	if p == nil || p.published == nil {
		return
	}
	p.published.Inc()
}

// IncFailed counts a failed publish attempt.
func (p *PublisherMetrics) IncFailed(reason string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}
