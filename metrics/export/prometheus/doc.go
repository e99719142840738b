// Package prometheus exposes engine counters through prometheus/client_golang.
//
// [Collector] implements prometheus.Collector and reads a fresh snapshot on every
// scrape. Counters are named wbauth_*_total; the latency histograms are
// wbauth_identity_latency_seconds and wbauth_refresh_latency_seconds.
//
// Nothing here registers in the global Prometheus registry. Callers either register
// the Collector themselves or mount [Collector.Handler].
package prometheus
