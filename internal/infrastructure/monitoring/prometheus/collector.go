package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
)

// Collector registers metrics on a private registry so tests and multiple
// services do not trip over the global default.
type Collector struct {
	registry   *prometheus.Registry
	namespace  string
	registered map[string]prometheus.Collector
	mu         sync.Mutex
	logger     logging.Logger
}

// NewCollector builds a collector under the given namespace, with process
// and Go runtime collectors attached.
func NewCollector(namespace string, log logging.Logger) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return &Collector{
		registry:   registry,
		namespace:  namespace,
		registered: make(map[string]prometheus.Collector),
		logger:     log.Named("metrics"),
	}
}

// Handler serves the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// register is idempotent per metric name, so repeated wiring is harmless.
func (c *Collector) register(name string, coll prometheus.Collector) prometheus.Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.registered[name]; ok {
		return existing
	}
	if err := c.registry.Register(coll); err != nil {
		c.logger.Error("cannot register metric", logging.String("name", name), logging.Err(err))
		return coll
	}
	c.registered[name] = coll
	return coll
}

// Counter registers a labeled counter.
func (c *Collector) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	return c.register(name, vec).(*prometheus.CounterVec)
}

// Gauge registers a labeled gauge.
func (c *Collector) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	return c.register(name, vec).(*prometheus.GaugeVec)
}

// Histogram registers a labeled histogram with explicit buckets.
func (c *Collector) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	return c.register(name, vec).(*prometheus.HistogramVec)
}
