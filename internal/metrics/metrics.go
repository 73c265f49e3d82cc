// Package metrics exposes pipeline counters in the prometheus format.
//
// A Metrics value owns its own registry so that tests and multiple pipelines
// never collide on the default one. Every method is safe on a nil receiver,
// which lets callers run without metrics.
package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Metrics collects per-call pipeline outcomes.
type Metrics struct {
	registry *prometheus.Registry

	results  *prometheus.CounterVec
	stages   *prometheus.CounterVec
	regions  prometheus.Counter
	duration prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plate_redact_results_total",
			Help: "Redaction calls by final status",
		}, []string{"status"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plate_redact_stage_hits_total",
			Help: "Redaction calls by the stage that applied the blur",
		}, []string{"stage"}),
		regions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plate_redact_regions_total",
			Help: "Total number of regions blurred",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plate_redact_duration_seconds",
			Help:    "Time spent in one redaction call",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	m.registry.MustRegister(m.results, m.stages, m.regions, m.duration, newProcessCollector())
	return m
}

// Observe records one finished redaction call.
func (m *Metrics) Observe(status, stage string, applied int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(status).Inc()
	if stage != "" && applied > 0 {
		m.stages.WithLabelValues(stage).Inc()
	}
	if applied > 0 {
		m.regions.Add(float64(applied))
	}
	m.duration.Observe(elapsed.Seconds())
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) {
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Warn("metrics server shutdown", zap.Error(err))
	}
}

// processCollector reports the resident memory and CPU usage of this
// process, sampled on every scrape.
type processCollector struct {
	proc *process.Process
	mem  *prometheus.Desc
	cpu  *prometheus.Desc
}

func newProcessCollector() *processCollector {
	c := &processCollector{
		mem: prometheus.NewDesc("memory_usage_megabytes",
			"Resident memory of the process in megabytes", nil, nil),
		cpu: prometheus.NewDesc("cpu_usage_percent",
			"CPU usage of the process in percent", nil, nil),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		c.proc = proc
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *processCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.mem
	ch <- c.cpu
}

// Collect implements prometheus.Collector. Values the platform cannot
// report are left out of the scrape.
func (c *processCollector) Collect(ch chan<- prometheus.Metric) {
	if c.proc == nil {
		return
	}
	if mem, err := c.proc.MemoryInfo(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.mem, prometheus.GaugeValue, float64(mem.RSS/1024/1024))
	}
	if cpu, err := c.proc.CPUPercent(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, math.Round(cpu*100)/100)
	}
}
