// Package metrics exposes the resolver's Prometheus collectors.
//
// All collectors live on a private registry so several resolvers (or
// tests) can coexist in one process. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resolver"

// Command results used as the "result" label.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultUnknown = "unknown"
	ResultFailed  = "failed"
)

// Metrics holds the resolver's collectors.
type Metrics struct {
	registry *prometheus.Registry

	events     *prometheus.CounterVec
	commands   *prometheus.CounterVec
	devices    prometheus.Gauge
	stale      prometheus.Gauge
	broadcasts prometheus.Counter
	conflicts  prometheus.Counter
	dropped    *prometheus.CounterVec
}

// New creates the collectors and registers them, with the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Bus events handled, by subject.",
		}, []string{"subject"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by command and result.",
		}, []string{"command", "result"}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Devices in the live inventory.",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_devices",
			Help:      "Devices in the live inventory flagged stale.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_broadcasts_total",
			Help:      "Discovery broadcasts sent.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devicetype_conflicts_total",
			Help:      "Re-announces that changed a device's type.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Bus messages dropped because the reactor queue was full, by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.events, m.commands, m.devices, m.stale, m.broadcasts, m.conflicts, m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// EventHandled counts one handled event.
func (m *Metrics) EventHandled(subject string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(subject).Inc()
}

// CommandHandled counts one handled command.
func (m *Metrics) CommandHandled(command, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, result).Inc()
}

// SetInventory records the inventory size and how many entries are stale.
func (m *Metrics) SetInventory(devices, stale int) {
	if m == nil {
		return
	}
	m.devices.Set(float64(devices))
	m.stale.Set(float64(stale))
}

// DiscoveryBroadcast counts one discovery broadcast.
func (m *Metrics) DiscoveryBroadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

// DeviceTypeConflict counts one device type change on re-announce.
func (m *Metrics) DeviceTypeConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// MessageDropped counts one bus message of the given kind ("event" or
// "request") that could not be queued.
func (m *Metrics) MessageDropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}
