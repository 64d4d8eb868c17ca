package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests  *prometheus.CounterVec
	transactions *prometheus.CounterVec
	airdropped   prometheus.Counter
	slot         prometheus.Gauge
	httpDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localnet",
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and outcome.",
		}, []string{"method", "code"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localnet",
			Name:      "transactions_total",
			Help:      "Submitted transactions by result.",
		}, []string{"result"}),
		airdropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "localnet",
			Name:      "airdropped_lamports_total",
			Help:      "Lamports handed out by the faucet.",
		}),
		slot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "localnet",
			Name:      "slot",
			Help:      "Latest processed slot.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "localnet",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(m.rpcRequests, m.transactions, m.airdropped, m.slot, m.httpDuration)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRPC(method string, code int) {
	m.rpcRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveTransaction counts a transaction as success, failed or rejected
func (m *Metrics) ObserveTransaction(result string) {
	m.transactions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAirdrop(lamports uint64) {
	m.airdropped.Add(float64(lamports))
}

func (m *Metrics) SetSlot(slot uint64) {
	m.slot.Set(float64(slot))
}

// Middleware records request latency labelled by the matched route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
