// Package metrics exposes Prometheus instrumentation for the refresh loop
// and the frame server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	framesRenderedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daynight_frames_rendered_total",
			Help: "Total number of shaded frames.",
		},
	)

	shadeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "daynight_shade_duration_seconds",
			Help:    "Time spent shading one frame.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	sunLongitudeDegrees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daynight_sun_longitude_degrees",
			Help: "Sub-solar longitude of the last frame, wrapped to [-180, 180).",
		},
	)

	sunDeclinationDegrees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daynight_sun_declination_degrees",
			Help: "Solar declination of the last frame.",
		},
	)

	streamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daynight_stream_clients",
			Help: "Connected WebSocket frame stream clients.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daynight_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daynight_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(framesRenderedTotal)
	prometheus.MustRegister(shadeDurationSeconds)
	prometheus.MustRegister(sunLongitudeDegrees)
	prometheus.MustRegister(sunDeclinationDegrees)
	prometheus.MustRegister(streamClients)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFrame records one refresh: how long shading took and where the
// sun was.
func ObserveFrame(shade time.Duration, sunLongitude, sunDeclination float64) {
	framesRenderedTotal.Inc()
	shadeDurationSeconds.Observe(shade.Seconds())
	sunLongitudeDegrees.Set(sunLongitude)
	sunDeclinationDegrees.Set(sunDeclination)
}

// SetStreamClients sets the number of connected stream clients.
func SetStreamClients(n int) {
	streamClients.Set(float64(n))
}

// knownRoutes keeps the path label bounded.
var knownRoutes = map[string]bool{
	"/":              true,
	"/metrics":       true,
	"/api/health":    true,
	"/api/sun":       true,
	"/api/frame.png": true,
	"/api/ws":        true,
}

// normalizeRoute maps request paths to a bounded label set.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer so WebSocket upgrades
// work behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
