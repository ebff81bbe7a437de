package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequested  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agaciro", Name: "rides_requested_total", Help: "Total ride requests created"})
	RidesCompleted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agaciro", Name: "rides_completed_total", Help: "Total rides driven to completion"})
	OffersPublished = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agaciro", Name: "offers_published_total", Help: "Total ride offers pushed to drivers"})
	AcceptsWon      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agaciro", Name: "accepts_won_total", Help: "Accepted or force-assigned rides"})
	AcceptsLost     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "agaciro", Name: "accepts_lost_total", Help: "Accept attempts that lost the offer race"})

	ActiveRides   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "agaciro", Name: "active_rides", Help: "Rides with a driver and a non-terminal status"})
	DriversOnline = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "agaciro", Name: "drivers_online", Help: "Drivers currently online and idle"})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agaciro",
		Name:      "sim_tick_duration_seconds",
		Help:      "Simulation tick latency distribution",
		Buckets:   prometheus.DefBuckets,
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "agaciro", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agaciro",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
