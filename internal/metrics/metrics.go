// Package metrics exposes poller counters for an optional Prometheus scrape.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outage_checks_total",
		Help: "Schedule checks performed by the poller.",
	})

	CheckErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outage_check_errors_total",
		Help: "Failed checks by error reason.",
	}, []string{"reason"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outage_notifications_total",
		Help: "Notification events emitted by kind.",
	}, []string{"kind"})
)

// Serve exposes /metrics on addr. Blocking; run in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
