package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the bot's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calorie_bot",
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Inbound events handled, by kind.",
		},
		[]string{"kind"},
	)

	analysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calorie_bot",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Calls to the analysis provider, by source and result.",
		},
		[]string{"source", "success"},
	)

	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calorie_bot",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of a full photo or text analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		},
		[]string{"source"},
	)

	entriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calorie_bot",
			Subsystem: "diary",
			Name:      "entries_total",
			Help:      "Food entries saved.",
		},
	)

	broadcastMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calorie_bot",
			Subsystem: "broadcast",
			Name:      "messages_total",
			Help:      "Messages sent by the daily broadcast, by kind and result.",
		},
		[]string{"kind", "success"},
	)

	broadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "calorie_bot",
			Subsystem: "broadcast",
			Name:      "run_duration_seconds",
			Help:      "Duration of a daily broadcast run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	donationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calorie_bot",
			Subsystem: "donation",
			Name:      "completed_total",
			Help:      "Completed donation checkouts.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calorie_bot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	Registry.MustRegister(
		updatesTotal,
		analysisTotal,
		analysisDuration,
		entriesTotal,
		broadcastMessages,
		broadcastDuration,
		donationsTotal,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordUpdate(kind string) {
	updatesTotal.WithLabelValues(kind).Inc()
}

func RecordAnalysis(source string, duration time.Duration, success bool) {
	analysisTotal.WithLabelValues(source, strconv.FormatBool(success)).Inc()
	if success {
		analysisDuration.WithLabelValues(source).Observe(duration.Seconds())
	}
}

func RecordEntry() {
	entriesTotal.Inc()
}

// RecordBroadcastMessage counts one summary or donation message of a broadcast run.
func RecordBroadcastMessage(kind string, success bool) {
	broadcastMessages.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

func RecordBroadcastRun(duration time.Duration) {
	broadcastDuration.Observe(duration.Seconds())
}

func RecordDonation() {
	donationsTotal.Inc()
}

// InstrumentHandler wraps the provided handler with request counting.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(strings.ToUpper(r.Method), r.URL.Path, strconv.Itoa(rec.status)).Inc()
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
