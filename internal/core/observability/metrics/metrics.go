// Package metrics exposes Prometheus collectors for the sync core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters maintained by the sync client and the live
// event channel. A nil *Metrics is valid and records nothing.
type Metrics struct {
	DocumentLoads    prometheus.Counter
	LoadFailures     prometheus.Counter
	PatchesSent      prometheus.Counter
	PatchFailures    prometheus.Counter
	EventsDispatched prometheus.Counter
	MalformedEvents  prometheus.Counter
	Reconnects       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_document_loads_total",
			Help: "Successful document loads.",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_document_load_failures_total",
			Help: "Failed document loads.",
		}),
		PatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_patches_sent_total",
			Help: "Patch requests acknowledged by the server.",
		}),
		PatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_patch_failures_total",
			Help: "Patch requests that failed or were rejected.",
		}),
		EventsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_events_dispatched_total",
			Help: "Push events applied to the status projection.",
		}),
		MalformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_events_malformed_total",
			Help: "Push events dropped due to undecodable payloads.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridgesync_channel_reconnects_total",
			Help: "Reconnect attempts made by the live event channel.",
		}),
	}

	reg.MustRegister(
		m.DocumentLoads,
		m.LoadFailures,
		m.PatchesSent,
		m.PatchFailures,
		m.EventsDispatched,
		m.MalformedEvents,
		m.Reconnects,
	)

	return m
}

// The Inc* helpers are nil-safe so components can carry an optional bundle.

func (m *Metrics) IncDocumentLoads() {
	if m != nil {
		m.DocumentLoads.Inc()
	}
}

func (m *Metrics) IncLoadFailures() {
	if m != nil {
		m.LoadFailures.Inc()
	}
}

func (m *Metrics) IncPatchesSent() {
	if m != nil {
		m.PatchesSent.Inc()
	}
}

func (m *Metrics) IncPatchFailures() {
	if m != nil {
		m.PatchFailures.Inc()
	}
}

func (m *Metrics) IncEventsDispatched() {
	if m != nil {
		m.EventsDispatched.Inc()
	}
}

func (m *Metrics) IncMalformedEvents() {
	if m != nil {
		m.MalformedEvents.Inc()
	}
}

func (m *Metrics) IncReconnects() {
	if m != nil {
		m.Reconnects.Inc()
	}
}
