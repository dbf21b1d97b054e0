package driver

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports per-policy, per-level sweep results as Prometheus
// gauges, following the ClusterCockpit collector's pattern of a
// dedicated registry plus GaugeVec pairs rather than the default
// global registry.
type Metrics struct {
	registry *prometheus.Registry

	missRate    *prometheus.GaugeVec
	accessCycle *prometheus.GaugeVec
	amat        *prometheus.GaugeVec
	fetchNum    *prometheus.GaugeVec
	replaceNum  *prometheus.GaugeVec
	prefetchNum *prometheus.GaugeVec
}

// NewMetrics builds a Metrics with its own registry, so ServeMetrics
// never collides with metrics any other package in the process may
// register against the default registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	labels := []string{"policy", "level"}
	m := &Metrics{
		registry: reg,
		missRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cachesim_miss_rate",
			Help: "Miss rate of a cache level for a replacement policy's measurement run.",
		}, labels),
		accessCycle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cachesim_access_cycles_total",
			Help: "Accumulated access cycles of a cache level for a replacement policy's measurement run.",
		}, labels),
		amat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cachesim_amat",
			Help: "Average memory access time of a cache level, inductively computed from the levels below it.",
		}, labels),
		fetchNum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cachesim_fetch_total",
			Help: "Number of lines installed into a cache level.",
		}, labels),
		replaceNum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cachesim_replace_total",
			Help: "Number of valid lines evicted from a cache level.",
		}, labels),
		prefetchNum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cachesim_prefetch_total",
			Help: "Number of stream prefetches issued by a cache level.",
		}, labels),
	}

	reg.MustRegister(m.missRate, m.accessCycle, m.amat, m.fetchNum, m.replaceNum, m.prefetchNum)
	return m
}

// Observe records one policy's report into the gauges, one set of
// label values per level.
func (m *Metrics) Observe(r Report) {
	for _, lvl := range r.Levels {
		level := fmt.Sprintf("%d", lvl.Level)
		m.missRate.WithLabelValues(r.PolicyName, level).Set(lvl.MissRate)
		m.accessCycle.WithLabelValues(r.PolicyName, level).Set(float64(lvl.AccessCycle))
		m.amat.WithLabelValues(r.PolicyName, level).Set(lvl.AMAT)
		m.fetchNum.WithLabelValues(r.PolicyName, level).Set(float64(lvl.FetchNum))
		m.replaceNum.WithLabelValues(r.PolicyName, level).Set(float64(lvl.ReplaceNum))
		m.prefetchNum.WithLabelValues(r.PolicyName, level).Set(float64(lvl.PrefetchNum))
	}
}

// ServeMetrics starts an HTTP server on addr exposing m's registry at
// /metrics. It blocks until the server stops or errors, the same
// contract as http.ListenAndServe.
func ServeMetrics(addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
