package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Route request outcomes
const (
	OutcomeRouted  = "routed"
	OutcomeNoRoute = "no_route"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

var (
	RouteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_requests_total", Help: "Route searches by outcome"},
		[]string{"outcome"},
	)
	RouteCandidatePaths = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_candidate_paths",
		Help:    "Simple paths enumerated per route search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	ReserveFetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reserve_fetch_failures_total",
		Help: "Candidate paths dropped because a reserve read failed",
	})
	RouteSearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_search_duration_seconds",
		Help:    "Route search latency",
		Buckets: prometheus.DefBuckets,
	})
	PoolDiscoveryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pool_discovery_total", Help: "Pool list loads by source"},
		[]string{"source"},
	)
)

// Init registers the collectors on a fresh registry
func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		RouteRequestsTotal, RouteCandidatePaths, ReserveFetchFailuresTotal,
		RouteSearchDuration, PoolDiscoveryTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
