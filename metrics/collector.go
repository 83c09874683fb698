// ABOUTME: Collector exposes the core's only user-visible signal: dropped-contribution rate
// ABOUTME: Grounded on the example corpus's internal/server Metrics type (WritePrometheus over promhttp)

// Package metrics is the ambient observability surface spec.md §7 calls
// for ("aggregate rate... exposed via the warn-logger counter") given a
// concrete shape: a Prometheus counter for dropped contributions plus
// gauges for pool occupancy and registry size, grounded on the example
// corpus's internal/server.Metrics (NewMetrics/WritePrometheus).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counting core's Prometheus instruments. Each
// Collector owns a private registry rather than the global default one,
// so multiple Collectors (one per test, for instance) never collide on
// double registration.
type Collector struct {
	registry *prometheus.Registry
	handler  http.Handler

	droppedContributions prometheus.Counter
	poolOccupancy        prometheus.Gauge
	registrySize         prometheus.Gauge
}

// NewCollector creates a Collector with a fresh private registry,
// pre-registered with the standard Go runtime collectors alongside the
// domain instruments.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,
		droppedContributions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heapstats_dropped_contributions_total",
			Help: "Total object contributions dropped due to allocation failure or pool contention.",
		}),
		poolOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heapstats_pool_occupancy",
			Help: "Current number of idle containers held by the container pool.",
		}),
		registrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heapstats_registry_size",
			Help: "Current number of class records held by the class registry.",
		}),
	}

	reg.MustRegister(c.droppedContributions, c.poolOccupancy, c.registrySize)
	c.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return c
}

// IncDroppedContribution increments the dropped-contribution counter, the
// aggregate rate spec.md §7 requires be exposed for every allocation
// failure or pool-contention drop.
func (c *Collector) IncDroppedContribution() { c.droppedContributions.Inc() }

// SetPoolOccupancy records the pool's current idle-container count.
func (c *Collector) SetPoolOccupancy(n float64) { c.poolOccupancy.Set(n) }

// SetRegistrySize records the class registry's current record count.
func (c *Collector) SetRegistrySize(n float64) { c.registrySize.Set(n) }

// WritePrometheus serves the collector's registry in Prometheus text
// exposition format.
func (c *Collector) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	c.handler.ServeHTTP(w, r)
}
