// Package otel publishes engine counters through OpenTelemetry metrics.
//
// [NewExporter] registers four observable instruments: wbauth.events (one point per
// engine counter, keyed by the "event" attribute), wbauth.latency.bucket and
// wbauth.latency.count (keyed by "op" and "le"), and wbauth.audit.dropped. A single
// callback reads Engine.MetricsSnapshot on each collection cycle. The caller owns the
// MeterProvider.
package otel
