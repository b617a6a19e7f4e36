// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AppMetrics bundles the collectors tracked by the service.  Handlers and
// the realtime hub share one instance wired up in main.
type AppMetrics struct {
	LoginTotal        *prometheus.CounterVec // login attempts by outcome
	RotationTotal     *prometheus.CounterVec // refresh rotations by outcome
	WSConnections     prometheus.Gauge       // currently subscribed realtime connections
	BroadcastTotal    prometheus.Counter     // station updates fanned out
	BroadcastDelivery *prometheus.CounterVec // per-connection delivery results
}

// New creates the collectors and registers them on reg.  Passing a fresh
// registry in tests keeps collectors from colliding across test cases.
func New(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plugspotter",
				Subsystem: "auth",
				Name:      "login_total",
				Help:      "Total number of login attempts",
			},
			[]string{"outcome"},
		),
		RotationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plugspotter",
				Subsystem: "auth",
				Name:      "refresh_rotation_total",
				Help:      "Total number of refresh token rotations",
			},
			[]string{"outcome"},
		),
		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "plugspotter",
				Subsystem: "realtime",
				Name:      "connections",
				Help:      "Number of currently subscribed websocket connections",
			},
		),
		BroadcastTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "plugspotter",
				Subsystem: "realtime",
				Name:      "broadcast_total",
				Help:      "Total number of station updates broadcast",
			},
		),
		BroadcastDelivery: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plugspotter",
				Subsystem: "realtime",
				Name:      "delivery_total",
				Help:      "Per-connection delivery results of broadcasts",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.LoginTotal, m.RotationTotal, m.WSConnections, m.BroadcastTotal, m.BroadcastDelivery)
	return m
}
