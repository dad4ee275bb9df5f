package entigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordSearch is called after each backend search.
	// index is the queried index, duration is the round-trip time,
	// err is nil if successful.
	RecordSearch(index string, duration time.Duration, err error)

	// RecordHop is called after each completed hop.
	// newValues is the number of attribute values discovered in the hop.
	RecordHop(hop int, newValues int)

	// RecordRun is called once per job run.
	// hops is the zero-based number of the last hop the run reached, hits the
	// number of collected documents, duration the total run time, err is nil
	// if successful.
	RecordRun(hops, hits int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordHop(int, int)                        {}
func (NoopMetricsCollector) RecordRun(int, int, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	HopCount         atomic.Int64
	ValuesDiscovered atomic.Int64
	RunCount         atomic.Int64
	RunErrors        atomic.Int64
	RunTotalNanos    atomic.Int64
	HitsCollected    atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ string, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordHop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHop(_ int, newValues int) {
	b.HopCount.Add(1)
	b.ValuesDiscovered.Add(int64(newValues))
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(_, hits int, duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	b.HitsCollected.Add(int64(hits))
	if err != nil {
		b.RunErrors.Add(1)
	}
}
