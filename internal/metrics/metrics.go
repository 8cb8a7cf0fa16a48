// Package metrics exports group counts as Prometheus gauges.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// DirectoryStorage is the storage label of directory groups.
const DirectoryStorage = "ldap"

const refreshTimeout = 30 * time.Second

// Counter returns the number of groups held by one source.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Source is one labelled group count.
type Source struct {
	Storage string
	Counter Counter
}

// GroupMetrics owns the registry and the groups_size gauge.
type GroupMetrics struct {
	registry *prometheus.Registry
	size     *prometheus.GaugeVec
	sources  []Source
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a registry with the process and Go collectors plus
// groups_size{storage} for every source.
func New(logger *slog.Logger, sources ...Source) *GroupMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "groups_size",
		Help: "Number of groups per storage.",
	}, []string{"storage"})
	reg.MustRegister(size)

	return &GroupMetrics{
		registry: reg,
		size:     size,
		sources:  sources,
		logger:   logger.With("component", "metrics"),
	}
}

// Registry returns the underlying registry.
func (m *GroupMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *GroupMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Refresh recounts every source. A failing source keeps its last value.
func (m *GroupMetrics) Refresh(ctx context.Context) {
	for _, src := range m.sources {
		n, err := src.Counter.Count(ctx)
		if err != nil {
			m.logger.Warn("group count failed", "storage", src.Storage, "error", err)
			continue
		}
		m.size.WithLabelValues(src.Storage).Set(float64(n))
	}
}

// Start refreshes once and then on schedule until Stop is called.
func (m *GroupMetrics) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, m.refreshWithTimeout); err != nil {
		return fmt.Errorf("metrics schedule %q: %w", schedule, err)
	}
	m.refreshWithTimeout()
	c.Start()
	m.cron = c
	m.logger.Info("metrics refresh scheduled", "schedule", schedule)
	return nil
}

// Stop halts scheduled refreshes and waits for a running one.
func (m *GroupMetrics) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

func (m *GroupMetrics) refreshWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	m.Refresh(ctx)
}
