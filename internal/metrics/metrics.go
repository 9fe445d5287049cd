// Package metrics is a small, backend-agnostic facade for pipeline metrics.
//
// A process installs at most one Backend with SetBackend; until then every
// call is a no-op, so instrumented code never has to check whether metrics
// are configured. Concrete backends live in subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal       = "bggetl_step_total"
	StepDuration    = "bggetl_step_duration_seconds"
	RecordsTotal    = "bggetl_records_total"
	BatchesTotal    = "bggetl_batches_total"
	TableRowsLoaded = "bggetl_table_rows_loaded"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives counters and duration observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the installed backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and observes its
// duration, labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// Time runs fn and records it as step.
func Time(job, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	RecordStep(job, step, err, time.Since(start))
	return err
}

// RecordRecords adds delta to the record counter for kind, e.g. "games",
// "links", "parse_errors", "dropped_items". Non-positive deltas are ignored.
func RecordRecords(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches counts catalog batches fetched.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}

// RecordTableLoad counts rows written to one database table.
func RecordTableLoad(job, table string, rows int64) {
	current().IncCounter(TableRowsLoaded, float64(rows), Labels{"job": job, "table": table})
}
