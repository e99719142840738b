package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/inkstone/wbauth"
	"github.com/inkstone/wbauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names. Engine counters share one instrument and are told apart by the
// "event" attribute; latency buckets by "op" and "le".
const (
	EventsInstrument        = "wbauth.events"
	LatencyBucketInstrument = "wbauth.latency.bucket"
	LatencyCountInstrument  = "wbauth.latency.count"
	AuditDroppedInstrument  = "wbauth.audit.dropped"
)

type metricsSource interface {
	MetricsSnapshot() wbauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterPoint struct {
	id    wbauth.MetricID
	attrs metric.MeasurementOption
}

type histogramPoints struct {
	id      wbauth.MetricID
	op      metric.MeasurementOption
	buckets [8]metric.MeasurementOption
}

// Exporter publishes engine counters as observable instruments on a caller-owned
// Meter. It is read on every collection cycle and holds no state of its own.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	events       metric.Int64ObservableCounter
	bucket       metric.Int64ObservableGauge
	count        metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter

	counters   []counterPoint
	histograms []histogramPoints
}

// NewExporter registers instruments on meter reading from engine.
func NewExporter(meter metric.Meter, engine *wbauth.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var err error

	if e.events, err = meter.Int64ObservableCounter(EventsInstrument,
		metric.WithDescription("Session operations by outcome."),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", EventsInstrument, err)
	}
	if e.bucket, err = meter.Int64ObservableGauge(LatencyBucketInstrument,
		metric.WithDescription("Cumulative latency samples at or below le seconds."),
		metric.WithUnit("{sample}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyBucketInstrument, err)
	}
	if e.count, err = meter.Int64ObservableGauge(LatencyCountInstrument,
		metric.WithDescription("Total latency samples."),
		metric.WithUnit("{sample}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyCountInstrument, err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedInstrument,
		metric.WithDescription("Audit events dropped under dispatcher backpressure."),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedInstrument, err)
	}

	// attribute sets are built once and reused on every callback
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, counterPoint{
			id:    def.ID,
			attrs: metric.WithAttributes(attribute.String("event", eventName(def.Name))),
		})
	}
	les := bucketBounds()
	for _, def := range internaldefs.HistogramDefs {
		op := opName(def.Name)
		h := histogramPoints{id: def.ID, op: metric.WithAttributes(attribute.String("op", op))}
		for i, le := range les {
			h.buckets[i] = metric.WithAttributes(attribute.String("op", op), attribute.String("le", le))
		}
		e.histograms = append(e.histograms, h)
	}

	e.registration, err = meter.RegisterCallback(e.observe, e.events, e.bucket, e.count, e.auditDropped)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(e.events, int64(snapshot.Counters[c.id]), c.attrs)
	}
	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(e.bucket, int64(v), h.buckets[i])
		}
		o.ObserveInt64(e.count, int64(cumulative[len(cumulative)-1]), h.op)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// eventName maps wbauth_refresh_success_total to refresh_success.
func eventName(promName string) string {
	return strings.TrimSuffix(strings.TrimPrefix(promName, "wbauth_"), "_total")
}

// opName maps wbauth_refresh_latency_seconds to refresh.
func opName(promName string) string {
	return strings.TrimSuffix(strings.TrimPrefix(promName, "wbauth_"), "_latency_seconds")
}

// bucketBounds renders the histogram bounds as "le" attribute values.
func bucketBounds() [8]string {
	var out [8]string
	for i, le := range internaldefs.HistogramBounds {
		out[i] = strconv.FormatFloat(le, 'f', -1, 64)
	}
	out[len(out)-1] = "+Inf"
	return out
}
