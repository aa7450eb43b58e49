package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moovie",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moovie",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5},
	}, []string{"method", "route"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moovie",
		Name:      "provider_requests_total",
		Help:      "Requests to the movie metadata provider by kind (search/discover) and result.",
	}, []string{"kind", "result"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moovie",
		Name:      "provider_request_duration_seconds",
		Help:      "Movie metadata provider request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	ProviderCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moovie",
		Name:      "provider_cache_hits_total",
		Help:      "Provider responses served from cache.",
	})

	LedgerRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moovie",
		Name:      "ledger_records_total",
		Help:      "Search term recordings by outcome (created, incremented, upserted, failed).",
	}, []string{"outcome"})

	LedgerEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moovie",
		Name:      "ledger_entries",
		Help:      "Distinct search terms in the popularity ledger.",
	})

	StaleResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moovie",
		Name:      "search_stale_responses_total",
		Help:      "Provider responses discarded because a newer query superseded them.",
	})

	LiveSearchSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moovie",
		Name:      "live_search_sessions",
		Help:      "Open live search WebSocket sessions.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderCacheHitsTotal,
		LedgerRecordsTotal,
		LedgerEntries,
		StaleResponsesTotal,
		LiveSearchSessions,
	)
}
