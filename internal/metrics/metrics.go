package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsEndpoint = "0.0.0.0:9090"
)

var (
	DispatchCounter        *prometheus.CounterVec
	DispatchRunTimeSummary *prometheus.SummaryVec

	ScriptsRendered *prometheus.CounterVec

	HTTPRequestCounter *prometheus.CounterVec
	RateLimitRejects   prometheus.Counter

	ManifestRefreshCounter *prometheus.CounterVec

	EventsPublished *prometheus.CounterVec

	StoreQueryErrorCount *prometheus.CounterVec
)

func init() {
	DispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootline_dispatch_total",
			Help: "A counter metric to measure the total count of dispatcher operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	DispatchRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "bootline_dispatch_duration_seconds",
			Help: "A summary metric to measure the time spent in each dispatcher operation",
		},
		[]string{"operation"},
	)

	ScriptsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootline_scripts_rendered_total",
			Help: "A counter metric to measure the total count of boot and provision scripts rendered",
		},
		[]string{"kind"},
	)

	HTTPRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootline_http_requests_total",
			Help: "A counter metric to measure the total count of HTTP requests served",
		},
		[]string{"route", "code"},
	)

	RateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bootline_http_rate_limit_rejects_total",
			Help: "A counter metric to measure the total count of requests rejected by the rate limiter",
		},
	)

	ManifestRefreshCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootline_manifest_refresh_total",
			Help: "A counter metric to measure the total count of version manifest refresh attempts",
		},
		[]string{"state"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootline_lifecycle_events_published_total",
			Help: "A counter metric to measure the total count of lifecycle events published",
		},
		[]string{"field", "state"},
	)

	StoreQueryErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_error_count",
			Help: "A counter metric to measure the total count of errors querying the inventory store.",
		},
		[]string{"storeKind", "queryKind"},
	)
}

// ListenAndServe exposes prometheus metrics as /metrics on the given address,
// MetricsEndpoint is used when addr is empty.
func ListenAndServe(addr string) *http.Server {
	if addr == "" {
		addr = MetricsEndpoint
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Println(err)
		}
	}()

	return server
}
