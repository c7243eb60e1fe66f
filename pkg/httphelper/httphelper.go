// Package httphelper instruments the local report feed's handlers with
// prometheus metrics.
package httphelper

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TraceResponseWriter captures the status code and body size a handler wrote.
type TraceResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (w *TraceResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *TraceResponseWriter) Write(data []byte) (int, error) {
	size, err := w.ResponseWriter.Write(data)
	w.size += size
	return size, err
}

// Metrics holds the prometheus collectors for the report feed. Request
// latency here is dominated by the upstream dashboard fetches the feed
// triggers, hence the second-scale buckets.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	ErrorRate           *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "http request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"status", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "http response size in bytes",
				Buckets:   []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
			},
			[]string{"status", "path"},
		),
		ErrorRate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_rate",
				Help:      "number of errors, sorted by label/type",
			},
			[]string{"error"},
		),
	}
	prometheus.MustRegister(m.HTTPRequestDuration)
	prometheus.MustRegister(m.HTTPResponseSize)
	prometheus.MustRegister(m.ErrorRate)
	return m
}

// RecordError counts an error under the given label.
func (m *Metrics) RecordError(label string) {
	if m.ErrorRate != nil {
		m.ErrorRate.With(prometheus.Labels{"error": label}).Inc()
	}
}

// HandleWithMetricsCustomTimer wraps a handler with duration and size
// observations; the timer is injectable so tests control the clock.
func (m *Metrics) HandleWithMetricsCustomTimer(h http.HandlerFunc, timeSince func(time.Time) time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			h(w, r)
			return
		}
		t := time.Now()
		// Handlers that never call WriteHeader respond 200.
		trw := &TraceResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h(trw, r)
		labels := prometheus.Labels{"status": strconv.Itoa(trw.statusCode), "path": r.URL.EscapedPath()}
		if m.HTTPRequestDuration != nil {
			m.HTTPRequestDuration.With(labels).Observe(timeSince(t).Seconds())
		}
		if m.HTTPResponseSize != nil {
			m.HTTPResponseSize.With(labels).Observe(float64(trw.size))
		}
	}
}

// HandleWithMetrics wraps a handler with metrics using the wall clock.
func (m *Metrics) HandleWithMetrics(h http.HandlerFunc) http.HandlerFunc {
	return m.HandleWithMetricsCustomTimer(h, time.Since)
}
