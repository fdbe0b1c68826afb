package monitor

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_jobs_enqueued_total",
		Help: "The total number of send jobs enqueued",
	}, []string{"trigger"}) // trigger: event, scheduled, broadcast

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_jobs_processed_total",
		Help: "The total number of send jobs processed",
	}, []string{"outcome"}) // outcome: sent, duplicate, canceled, failed

	EnqueueFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_enqueue_failures_total",
		Help: "The total number of absorbed enqueue failures",
	})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "email_job_duration_seconds",
		Help:    "Duration of send job execution.",
		Buckets: prometheus.LinearBuckets(0.1, 0.2, 10),
	})
)

// RegisterMetricsRoute exposes the prometheus registry on the API router.
func RegisterMetricsRoute(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// StartMetricsServer runs a standalone HTTP server for processes that do
// not carry the gin router (cmd/worker).
func StartMetricsServer(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server failed: %v", err)
		}
	}()
}
