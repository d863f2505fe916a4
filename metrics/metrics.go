// Package metrics exports Container write and reload activity as Prometheus
// metrics. A Collector is passed to factsys.WithObserver.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/groundstation/factsys"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of a Container.
type Collector struct {
	gatherer prometheus.Gatherer

	WritesAccepted    *prometheus.CounterVec
	WritesRejected    *prometheus.CounterVec
	UnknownParameters prometheus.Counter
	Reloads           prometheus.Counter
}

var _ factsys.Observer = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same registry
// returns a Collector sharing the existing metrics.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	accepted, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factsys_writes_accepted_total",
		Help: "Parameter writes accepted by the validation policy, labeled by metadata group.",
	}, []string{"group"}), "factsys_writes_accepted_total")
	if err != nil {
		return nil, err
	}
	rejected, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factsys_writes_rejected_total",
		Help: "Parameter writes rejected by the Container, labeled by metadata group.",
	}, []string{"group"}), "factsys_writes_rejected_total")
	if err != nil {
		return nil, err
	}
	unknown, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factsys_unknown_parameters_total",
		Help: "Parameters found in a layer without registered metadata.",
	}), "factsys_unknown_parameters_total")
	if err != nil {
		return nil, err
	}
	reloads, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "factsys_reloads_total",
		Help: "Reloads applied by Reload or a layer watcher.",
	}), "factsys_reloads_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		WritesAccepted:    accepted,
		WritesRejected:    rejected,
		UnknownParameters: unknown,
		Reloads:           reloads,
	}, nil
}

func (c *Collector) WriteAccepted(f *factsys.Fact) {
	if c == nil {
		return
	}
	c.WritesAccepted.WithLabelValues(groupOf(f)).Inc()
}

func (c *Collector) WriteRejected(f *factsys.Fact, err error) {
	if c == nil {
		return
	}
	c.WritesRejected.WithLabelValues(groupOf(f)).Inc()
}

func (c *Collector) UnknownParameter(componentID int, name string) {
	if c == nil {
		return
	}
	c.UnknownParameters.Inc()
}

func (c *Collector) Reloaded() {
	if c == nil {
		return
	}
	c.Reloads.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func groupOf(f *factsys.Fact) string {
	if f == nil || !f.HasMetaData() {
		return factsys.DefaultGroup
	}
	return f.Group()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
