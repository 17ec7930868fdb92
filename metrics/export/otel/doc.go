// Package otel publishes engine counters and the refresh latency histogram as
// OpenTelemetry observable instruments.
//
// [New] creates one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket, then reads
// [goCred.Engine.MetricsSnapshot] from a single callback on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
