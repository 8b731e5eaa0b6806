// Package metrics содержит Prometheus-метрики магазина.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestDuration измеряет длительность обработки HTTP-запросов.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "converge",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method, route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// OrdersPlaced считает успешно оформленные заказы.
var OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "converge",
	Subsystem: "shop",
	Name:      "orders_placed_total",
	Help:      "Total orders placed in the shop.",
})

// OrdersDeclined считает заказы, отклонённые из-за нехватки токенов.
var OrdersDeclined = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "converge",
	Subsystem: "shop",
	Name:      "orders_declined_total",
	Help:      "Total orders declined because of insufficient tokens.",
})

// OrderStatusChanges считает смены статуса заказов администраторами.
var OrderStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "converge",
	Subsystem: "shop",
	Name:      "order_status_changes_total",
	Help:      "Total order status changes by target status.",
}, []string{"status"})

// ItemsImported считает результаты импорта каталога.
var ItemsImported = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "converge",
	Subsystem: "shop",
	Name:      "items_imported_total",
	Help:      "Shop items processed by the import endpoint, by result.",
}, []string{"result"})

// ObserveRequest записывает длительность обработанного запроса.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
