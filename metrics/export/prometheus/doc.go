// Package prometheus exposes engine counters as a prometheus.Collector.
//
// The collector reads [goCred.Engine.MetricsSnapshot] on every scrape; it
// holds no state of its own.
package prometheus
