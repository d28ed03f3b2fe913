package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/wallet"
)

// instruments holds the collectors of one Server. Each server gets its own
// registry so tests can build several.
type instruments struct {
	registry *prometheus.Registry
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newInstruments(w *wallet.Store) *instruments {
	in := &instruments{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: constants.AppName,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: constants.AppName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: constants.AppName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "route"}),
	}

	in.registry.MustRegister(
		in.inFlight,
		in.requests,
		in.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: constants.AppName,
			Subsystem: "wallet",
			Name:      "balance_tokens",
			Help:      "Current wallet balance in " + constants.TokenSymbol + ".",
		}, func() float64 {
			return w.Balance().InexactFloat64()
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: constants.AppName,
			Subsystem: "wallet",
			Name:      "pending_rewards",
			Help:      "Number of rewards not yet claimed.",
		}, func() float64 {
			return float64(len(w.PendingRewards()))
		}),
		collectors.NewGoCollector(),
	)
	return in
}

func (in *instruments) handler() http.Handler {
	return promhttp.HandlerFor(in.registry, promhttp.HandlerOpts{})
}

// middleware records request counts and latency by route template, so
// /api/meals/{id} is one series regardless of the id.
func (in *instruments) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		in.inFlight.Inc()
		defer in.inFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		in.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		in.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
