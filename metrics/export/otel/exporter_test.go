package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/inkstone/wbauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.Mutex
	counters map[wbauth.MetricID]uint64
	hist     map[wbauth.MetricID][]uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() wbauth.MetricsSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := wbauth.MetricsSnapshot{
		Counters:   make(map[wbauth.MetricID]uint64, len(f.counters)),
		Histograms: make(map[wbauth.MetricID][]uint64, len(f.hist)),
	}
	for k, v := range f.counters {
		out.Counters[k] = v
	}
	for k, v := range f.hist {
		out.Histograms[k] = append([]uint64(nil), v...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func pointValue(t *testing.T, points []metricdata.DataPoint[int64], kv ...attribute.KeyValue) int64 {
	t.Helper()
	want := attribute.NewSet(kv...)
	for _, p := range points {
		if p.Attributes.Equals(&want) {
			return p.Value
		}
	}
	t.Fatalf("no point with attributes %v", kv)
	return 0
}

func newReaderMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func TestExporterCollectsEventsAndLatency(t *testing.T) {
	reader, provider := newReaderMeter()

	src := &fakeSource{
		counters: map[wbauth.MetricID]uint64{
			wbauth.MetricRefreshSuccess: 3,
			wbauth.MetricLogoutAll:      1,
		},
		hist: map[wbauth.MetricID][]uint64{
			wbauth.MetricRefreshLatency: {1, 1, 1, 1, 1, 1, 1, 1},
		},
		dropped: 2,
	}

	exp, err := NewExporterFromSource(provider.Meter("wbauth-test"), src)
	require.NoError(t, err)
	defer func() { require.NoError(t, exp.Close()) }()

	got := collect(t, reader)

	events, ok := got[EventsInstrument].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.True(t, events.IsMonotonic)
	assert.Equal(t, int64(3), pointValue(t, events.DataPoints, attribute.String("event", "refresh_success")))
	assert.Equal(t, int64(1), pointValue(t, events.DataPoints, attribute.String("event", "logout_all")))
	assert.Equal(t, int64(0), pointValue(t, events.DataPoints, attribute.String("event", "store_unavailable")))

	buckets, ok := got[LatencyBucketInstrument].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, buckets.DataPoints, 8)
	assert.Equal(t, int64(1), pointValue(t, buckets.DataPoints, attribute.String("op", "refresh"), attribute.String("le", "0.005")))
	assert.Equal(t, int64(4), pointValue(t, buckets.DataPoints, attribute.String("op", "refresh"), attribute.String("le", "0.05")))
	assert.Equal(t, int64(8), pointValue(t, buckets.DataPoints, attribute.String("op", "refresh"), attribute.String("le", "+Inf")))

	count, ok := got[LatencyCountInstrument].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(8), pointValue(t, count.DataPoints, attribute.String("op", "refresh")))

	dropped, ok := got[AuditDroppedInstrument].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, dropped.DataPoints, 1)
	assert.Equal(t, int64(2), dropped.DataPoints[0].Value)
}

func TestNameMapping(t *testing.T) {
	assert.Equal(t, "refresh_success", eventName("wbauth_refresh_success_total"))
	assert.Equal(t, "identity", opName("wbauth_identity_latency_seconds"))

	les := bucketBounds()
	assert.Equal(t, "0.005", les[0])
	assert.Equal(t, "0.5", les[6])
	assert.Equal(t, "+Inf", les[7])
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReaderMeter()

	_, err := NewExporterFromSource(provider.Meter("wbauth-test"), nil)
	assert.ErrorIs(t, err, ErrNilSource)
	_, err = NewExporterFromSource(nil, &fakeSource{})
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReaderMeter()
	src := &fakeSource{counters: map[wbauth.MetricID]uint64{}}

	exp, err := NewExporterFromSource(provider.Meter("wbauth-test"), src)
	require.NoError(t, err)
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.counters[wbauth.MetricRefreshSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
