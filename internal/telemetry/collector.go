package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/paramtrace/internal/engine"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "paramtrace"

// Collector exposes a ParametricMonitor's Stats and sizes as metrics
// labelled with the property name.
//
// Counters are read from the lock-free Stats. The size gauges take the
// engine lock once per scrape.
type Collector struct {
	pm *engine.ParametricMonitor

	events       *prometheus.Desc
	ignored      *prometheus.Desc
	monitors     *prometheus.Desc
	updates      *prometheus.Desc
	terminated   *prometheus.Desc
	matches      *prometheus.Desc
	bindingsNew  *prometheus.Desc
	bindingsGone *prometheus.Desc
	nodesNew     *prometheus.Desc
	nodesGone    *prometheus.Desc
	liveBindings *prometheus.Desc
	liveNodes    *prometheus.Desc
	liveMonitors *prometheus.Desc
	logicalTime  *prometheus.Desc
}

// NewCollector creates a Collector for pm. An empty namespace selects
// DefaultNamespace.
func NewCollector(namespace, property string, pm *engine.ParametricMonitor) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	labels := prometheus.Labels{"property": property}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, labels)
	}
	return &Collector{
		pm:           pm,
		events:       desc("events_total", "Events dispatched to monitor instances."),
		ignored:      desc("ignored_events_total", "Events dropped before activation or by their condition."),
		monitors:     desc("monitors_total", "Monitors installed, by how they came to be.", "origin"),
		updates:      desc("monitor_updates_total", "Events delivered to existing monitors."),
		terminated:   desc("monitors_terminated_total", "Monitors that stopped for good."),
		matches:      desc("matches_total", "Matches reported."),
		bindingsNew:  desc("bindings_created_total", "Bindings created for bound objects."),
		bindingsGone: desc("bindings_released_total", "Bindings released after collection or explicit release."),
		nodesNew:     desc("nodes_created_total", "Parameter tree nodes created."),
		nodesGone:    desc("nodes_removed_total", "Parameter tree nodes pruned."),
		liveBindings: desc("bindings", "Live bindings."),
		liveNodes:    desc("nodes", "Parameter tree nodes."),
		liveMonitors: desc("monitors", "Nodes carrying a monitor."),
		logicalTime:  desc("timestamp", "Logical time of the next event."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.events, c.ignored, c.monitors, c.updates, c.terminated, c.matches,
		c.bindingsNew, c.bindingsGone, c.nodesNew, c.nodesGone,
		c.liveBindings, c.liveNodes, c.liveMonitors, c.logicalTime,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pm.Stats().Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.events, s.Events)
	counter(c.ignored, s.IgnoredEvents)
	counter(c.monitors, s.CreatedMonitors, "created")
	counter(c.monitors, s.DerivedMonitors, "derived")
	counter(c.monitors, s.JoinedMonitors, "joined")
	counter(c.monitors, s.DeadMonitors, "dead")
	counter(c.updates, s.UpdatedMonitors)
	counter(c.terminated, s.TerminatedMonitors)
	counter(c.matches, s.Matches)
	counter(c.bindingsNew, s.BindingsCreated)
	counter(c.bindingsGone, s.BindingsReleased)
	counter(c.nodesNew, s.NodesCreated)
	counter(c.nodesGone, s.NodesRemoved)

	gauge(c.liveBindings, int64(c.pm.Bindings()))
	gauge(c.liveNodes, int64(c.pm.Nodes()))
	gauge(c.liveMonitors, int64(c.pm.Monitors()))
	gauge(c.logicalTime, c.pm.Timestamp())
}

// NewRegistry returns a registry holding the Go runtime collectors and cs.
func NewRegistry(cs ...prometheus.Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
