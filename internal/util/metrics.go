package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartLinesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_lines_added_total",
		Help: "Total number of cart line additions (new lines and increments)",
	})

	CartLinesPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_lines_pruned_total",
		Help: "Total number of cart lines removed because their campaign ended",
	})

	CartMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_merges_total",
		Help: "Total number of anonymous carts merged into user carts",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders consolidated from carts",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order consolidations",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	LineStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_line_status_transitions_total",
		Help: "Total number of order line status transitions",
	}, []string{"field", "to"})

	InvalidTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_line_invalid_transitions_total",
		Help: "Total number of rejected order line status transitions",
	}, []string{"field"})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_notifications_sent_total",
		Help: "Total number of payment notifications sent to customers",
	})

	ConsolidationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_consolidation_latency_seconds",
		Help:    "Latency of cart-to-order consolidation transactions",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
