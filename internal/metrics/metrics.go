// Package metrics records operational metrics for a load run behind a small
// pluggable Backend. The default backend is a no-op, so instrumentation is
// always safe to call; prompush and datadog provide real backends.
//
// The pipeline reports one step sample per stage (load, clean, infer,
// indicators, emit, write), row counts by kind, the resolved column types
// and the number of insert batches.
package metrics

import "time"

// Metric names shared with the backends.
const (
	StepTotal           = "load_step_total"
	StepDurationSeconds = "load_step_duration_seconds"
	RowsTotal           = "load_rows_total"
	ColumnsTotal        = "load_columns_total"
	BatchesTotal        = "load_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep counts one execution of a pipeline step and records its
// duration, labelled by outcome.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": "success"}
	if err != nil {
		lbls["status"] = "failure"
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow adds delta rows of one kind: loaded, deduplicated, dropped or
// inserted.
func RecordRow(job, kind string, delta int64) {
	count(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordColumns counts resolved columns of one semantic type.
func RecordColumns(job, typ string, delta int) {
	count(ColumnsTotal, float64(delta), Labels{"job": job, "type": typ})
}

// RecordBatches counts insert batches sent for job.
func RecordBatches(job string, delta int64) {
	count(BatchesTotal, float64(delta), Labels{"job": job})
}

// count drops non-positive deltas so empty stages leave no series behind.
func count(name string, delta float64, lbls Labels) {
	if delta > 0 {
		backend.IncCounter(name, delta, lbls)
	}
}
