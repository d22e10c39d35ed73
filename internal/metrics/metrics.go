// Package metrics provides Prometheus instrumentation for the share engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts settled trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_trades_total",
		Help: "Total number of trades settled",
	}, []string{"side"})

	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "share_trade_latency_seconds",
		Help:    "Trade settlement latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	// TradeRejections counts trades refused before settlement, by reason.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_trade_rejections_total",
		Help: "Trades rejected, by side and reason",
	}, []string{"side", "reason"})

	// ShareVolume tracks cumulative shares traded.
	ShareVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_volume_total",
		Help: "Cumulative trade volume in shares",
	}, []string{"side"})

	// CommissionPaid tracks cumulative commission credited to creators, in base units.
	CommissionPaid = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_commission_total",
		Help: "Cumulative commission paid to creators in base units",
	}, []string{"side"})

	// PoolBalance is the pool account balance after the last settled trade.
	PoolBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "share_pool_balance",
		Help: "Pool account balance in base units",
	})

	CreatorsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "share_creators_registered_total",
		Help: "Creator records created",
	})

	EventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "share_events_created_total",
		Help: "Gated events created",
	})

	// LimitRejections counts trades rejected by the trade limiter.
	LimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "share_limit_rejections_total",
		Help: "Trades rejected by the trade limiter",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "share_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "share_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern labels by chi route pattern so addresses in the path do not
// blow up label cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
