// Package prompush is a Prometheus Pushgateway backend for the metrics
// package. A batch job has no scrape endpoint, so collectors live in a
// private registry that Flush pushes to the gateway.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"bggetl/internal/metrics"
)

// Backend collects pipeline metrics in a private registry and pushes them
// to a Prometheus Pushgateway on Flush. Metric names outside the known set
// are dropped.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec
	stepDuration *prometheus.SummaryVec
	records      *prometheus.CounterVec
	batches      prometheus.Counter
	tableRows    *prometheus.CounterVec
}

// NewBackend builds a backend pushing to gatewayURL under jobName
// ("bggetl" when empty).
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "bggetl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Pipeline step duration in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record counts by kind (games, links, parse_errors, dropped_items).",
		}, []string{"kind"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Catalog batches fetched.",
		}),
		tableRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.TableRowsLoaded,
			Help: "Rows written per database table.",
		}, []string{"table"}),
	}

	for _, c := range []prometheus.Collector{b.stepCounter, b.stepDuration, b.records, b.batches, b.tableRows} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RecordsTotal:
		b.records.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.BatchesTotal:
		b.batches.Add(delta)
	case metrics.TableRowsLoaded:
		b.tableRows.WithLabelValues(labels["table"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry, replacing this job's previous group.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}
