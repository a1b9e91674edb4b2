package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vjranagit/latency/pkg/stats"
	"github.com/vjranagit/latency/pkg/types"
)

// metrics holds the server's collectors on a private registry
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	regions  *prometheus.CounterVec
}

func newMetrics(snapshot Snapshot, cache *stats.ResultCache) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "latency_http_requests_total",
				Help: "HTTP requests handled, by method and status code",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "latency_http_request_duration_seconds",
				Help:    "HTTP request handling time",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		regions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "latency_regions_evaluated_total",
				Help: "Regions evaluated in latency reports, by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.regions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "latency_telemetry_records",
				Help: "Telemetry records in the loaded snapshot",
			},
			func() float64 { return float64(snapshot.Len()) },
		),
	)

	if cache != nil {
		m.registry.MustRegister(
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Name: "latency_result_cache_hits_total",
					Help: "Region results served from the cache",
				},
				func() float64 { return float64(cache.Hits()) },
			),
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Name: "latency_result_cache_misses_total",
					Help: "Region results computed because the cache had no entry",
				},
				func() float64 { return float64(cache.Misses()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "latency_result_cache_entries",
					Help: "Region results currently held in the cache",
				},
				func() float64 { return float64(cache.Size()) },
			),
		)
	}

	return m
}

func (m *metrics) observeRequest(method string, status int, elapsed time.Duration) {
	method = methodLabel(method)
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// methodLabel bounds the method label to the methods net/http defines
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	}
	return "other"
}

func (m *metrics) observeReport(report *types.LatencyReport) {
	for _, region := range report.Regions() {
		result := "no_data"
		if s, _ := report.Get(region); s.HasData() {
			result = "ok"
		}
		m.regions.WithLabelValues(result).Inc()
	}
}
