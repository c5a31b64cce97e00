// Package metrics exposes orchestrator counters alongside the HTTP metrics
// the server middleware already publishes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator's Prometheus collectors.
type Metrics struct {
	DeploymentsCreated *prometheus.CounterVec
	DeploymentsDone    *prometheus.CounterVec
	ActiveExecutions   prometheus.Gauge
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		DeploymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolloutd",
			Name:      "deployments_created_total",
			Help:      "Deployments accepted by the orchestrator.",
		}, []string{"strategy", "environment"}),

		DeploymentsDone: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolloutd",
			Name:      "deployments_finished_total",
			Help:      "Deployments that reached a terminal status.",
		}, []string{"strategy", "environment", "status"}),

		ActiveExecutions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rolloutd",
			Name:      "active_executions",
			Help:      "Executions currently running.",
		}),
	}
}
