package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_pages_created_total",
		Help: "Total number of checkout pages created",
	})

	PagesUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_pages_updated_total",
		Help: "Total number of checkout page saves",
	})

	PagesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_pages_deleted_total",
		Help: "Total number of checkout pages deleted",
	})

	// stage is "advisory" when the pre-check saw the slug taken, "write" when the insert collided
	SlugConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slug_conflicts_total",
		Help: "Total number of slug conflicts resolved by renaming",
	}, []string{"stage"})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected page or order payloads",
	}, []string{"code"})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted from checkout pages",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected order submissions",
	}, []string{"reason"})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Total number of order status updates by owners",
	}, []string{"status"})

	PageCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "page_cache_requests_total",
		Help: "Storefront page cache lookups",
	}, []string{"result"})

	ChangeEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_published_total",
		Help: "Total number of row change events published",
	}, []string{"table", "action"})

	ChangeEventsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_dispatched_total",
		Help: "Total number of change events delivered to subscribers",
	}, []string{"table"})

	ChangeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "change_subscriptions",
		Help: "Number of open change feed subscriptions",
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
