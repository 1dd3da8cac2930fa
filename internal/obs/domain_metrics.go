package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ListRequestsTotal counts list renders by entity and outcome.
	ListRequestsTotal *prometheus.CounterVec
	// ListSnapshotTotal counts snapshot loads by entity and source (cache or store).
	ListSnapshotTotal *prometheus.CounterVec
	// ListPageItems records how many items a rendered page carried.
	ListPageItems *prometheus.HistogramVec
	// TotalsComputedTotal counts totals computations by document kind and outcome.
	TotalsComputedTotal *prometheus.CounterVec
	// EventsEmittedTotal counts domain events handed to the queue.
	EventsEmittedTotal *prometheus.CounterVec
	// EventDeliveriesTotal counts sink deliveries by sink and outcome.
	EventDeliveriesTotal *prometheus.CounterVec
	// EventDeliveryLatency records sink delivery latency in milliseconds.
	EventDeliveryLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
// Only the first call has an effect.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ListRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_requests_total",
			Help:      "Count of list renders by entity and result.",
		}, []string{"entity", "result"}))
		ListSnapshotTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_snapshot_loads_total",
			Help:      "Count of list snapshot loads by entity and source.",
		}, []string{"entity", "source"}))
		ListPageItems = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "list_page_items",
			Help:      "Number of items returned per list page.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"entity"}))
		TotalsComputedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "totals_computed_total",
			Help:      "Count of document totals computations by kind and result.",
		}, []string{"kind", "result"}))
		EventsEmittedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Count of domain events enqueued by topic and result.",
		}, []string{"topic", "result"}))
		EventDeliveriesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Count of event deliveries by sink and result.",
		}, []string{"sink", "result"}))
		EventDeliveryLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_delivery_duration_ms",
			Help:      "Latency for event sink deliveries in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"sink"}))
	})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// ObserveList records a list render. It is a no-op until domain metrics are registered.
func ObserveList(entity string, items int, err error) {
	if ListRequestsTotal == nil {
		return
	}
	ListRequestsTotal.WithLabelValues(entity, result(err == nil)).Inc()
	if err == nil {
		ListPageItems.WithLabelValues(entity).Observe(float64(items))
	}
}

// ObserveSnapshot records where a list snapshot came from.
func ObserveSnapshot(entity, source string) {
	if ListSnapshotTotal == nil {
		return
	}
	ListSnapshotTotal.WithLabelValues(entity, source).Inc()
}

// ObserveTotals records a totals computation for an invoice or quotation.
func ObserveTotals(kind string, err error) {
	if TotalsComputedTotal == nil {
		return
	}
	TotalsComputedTotal.WithLabelValues(kind, result(err == nil)).Inc()
}

// ObserveEmit records an event handed to the queue.
func ObserveEmit(topic string, err error) {
	if EventsEmittedTotal == nil {
		return
	}
	EventsEmittedTotal.WithLabelValues(topic, result(err == nil)).Inc()
}

// ObserveDelivery records one sink delivery attempt.
func ObserveDelivery(sink string, millis float64, err error) {
	if EventDeliveriesTotal == nil {
		return
	}
	EventDeliveriesTotal.WithLabelValues(sink, result(err == nil)).Inc()
	EventDeliveryLatency.WithLabelValues(sink).Observe(millis)
}
