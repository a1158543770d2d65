package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus do results-service
type serviceMetrics struct {
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	windowDuration  prometheus.Histogram
	windowFetched   prometheus.Gauge
	windowMissing   prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	published       prometheus.Counter
	rateRejected    prometheus.Counter
}

func newServiceMetrics() *serviceMetrics {
	m := &serviceMetrics{
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "megasena_upstream_requests_total",
			Help: "chamadas à API de loterias por operação e resultado",
		}, []string{"op", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "megasena_upstream_request_seconds",
			Help:    "latência das chamadas à API de loterias",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		windowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "megasena_window_fetch_seconds",
			Help:    "duração da montagem da janela",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		}),
		windowFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "megasena_window_contests",
			Help: "concursos obtidos na última janela",
		}),
		windowMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "megasena_window_missing_total",
			Help: "concursos da janela descartados por falha",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "megasena_cache_lookups_total",
			Help: "consultas ao cache do proxy (hit/miss)",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "megasena_refresh_total",
			Help: "atualizações da janela por resultado",
		}, []string{"outcome"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "megasena_contests_published_total",
			Help: "eventos de concurso publicados no Kafka",
		}),
		rateRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "megasena_http_rate_limited_total",
			Help: "requisições recusadas com 429",
		}),
	}
	prometheus.MustRegister(
		m.upstreamCalls, m.upstreamLatency, m.windowDuration, m.windowFetched,
		m.windowMissing, m.cacheLookups, m.refreshes, m.published, m.rateRejected,
	)
	return m
}

func (m *serviceMetrics) observeUpstream(op, outcome string, d time.Duration) {
	m.upstreamCalls.WithLabelValues(op, outcome).Inc()
	m.upstreamLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *serviceMetrics) observeWindow(d time.Duration, requested, fetched int, err error) {
	m.windowDuration.Observe(d.Seconds())
	if err == nil {
		m.windowFetched.Set(float64(fetched))
	}
	if requested > fetched {
		m.windowMissing.Add(float64(requested - fetched))
	}
}

func (m *serviceMetrics) observeCache(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *serviceMetrics) observeRefresh(ok bool) {
	if ok {
		m.refreshes.WithLabelValues("ok").Inc()
		return
	}
	m.refreshes.WithLabelValues("error").Inc()
}
