package queue

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var (
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "toko_admin",
			Name:      "queue_depth",
			Help:      "Approximate number of ready tasks per kind",
		},
		[]string{"kind"},
	)
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toko_admin",
			Name:      "queue_processed_total",
			Help:      "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
	QueueDLQSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "toko_admin",
			Name:      "queue_dlq_size",
			Help:      "Number of tasks stored in DLQ",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth, QueueProcessedTotal, QueueDLQSize)
}

// queueLabel drops the shop scope from kinds like "shop:7:events" so the
// label set stays bounded.
func queueLabel(kind string) string {
	if i := strings.LastIndexByte(kind, ':'); i >= 0 && i < len(kind)-1 {
		return kind[i+1:]
	}
	if kind == "" {
		return "unknown"
	}
	return kind
}

func observeDepth(ctx context.Context, r *redis.Client, k keys, kind string) {
	depth, err := r.ZCard(ctx, k.queue(kind)).Result()
	if err != nil {
		return
	}
	QueueDepth.WithLabelValues(queueLabel(kind)).Set(float64(depth))
}
