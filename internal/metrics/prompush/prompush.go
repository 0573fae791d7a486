// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics package. Batch jobs cannot be scraped, so the run pushes
// its metrics to a gateway on Flush.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/metrics"
)

// Backend implements metrics.Backend using a private prometheus registry
// pushed to a Pushgateway.
type Backend struct {
	pusher *push.Pusher

	stageDuration *prometheus.GaugeVec
	rowsTotal     *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
}

// NewBackend builds the registry and its collectors. jobName becomes the
// Pushgateway job label; gatewayURL is the base URL of the gateway.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is empty")
	}
	if jobName == "" {
		jobName = "etl"
	}

	reg := prometheus.NewRegistry()

	stageDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "etl_stage_duration_seconds",
		Help: "Duration of the most recent run of each pipeline stage.",
	}, []string{"stage"})

	rowsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_rows_total",
		Help: "Records produced or persisted per pipeline stage.",
	}, []string{"stage"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_runs_total",
		Help: "Completed pipeline runs by mode and outcome.",
	}, []string{"mode", "status"})

	reg.MustRegister(stageDuration, rowsTotal, runsTotal)

	return &Backend{
		pusher:        push.New(gatewayURL, jobName).Gatherer(reg),
		stageDuration: stageDuration,
		rowsTotal:     rowsTotal,
		runsTotal:     runsTotal,
	}, nil
}

// ObserveStageDuration implements metrics.Backend.
func (b *Backend) ObserveStageDuration(stage string, seconds float64) {
	b.stageDuration.WithLabelValues(stage).Set(seconds)
}

// AddRows implements metrics.Backend.
func (b *Backend) AddRows(stage string, n int) {
	if n <= 0 {
		return
	}
	b.rowsTotal.WithLabelValues(stage).Add(float64(n))
}

// IncRun implements metrics.Backend.
func (b *Backend) IncRun(mode string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	b.runsTotal.WithLabelValues(mode, status).Inc()
}

// Flush pushes the registry to the gateway.
func (b *Backend) Flush() error {
	return b.pusher.Push()
}

var _ metrics.Backend = (*Backend)(nil)
