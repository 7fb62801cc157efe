package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	credkit "github.com/kynelabs/credkit"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() credkit.MetricsSnapshot
}

type counterDef struct {
	ID   credkit.MetricID
	Name string
	Help string
}

var counterDefs = []counterDef{
	{credkit.MetricLoginSuccess, "credkit_login_success_total", "Successful logins."},
	{credkit.MetricLoginFailure, "credkit_login_failure_total", "Logins rejected for bad credentials."},
	{credkit.MetricLoginRateLimited, "credkit_login_rate_limited_total", "Logins rejected by the rate limiter."},
	{credkit.MetricLoginLocked, "credkit_login_locked_total", "Logins rejected by the lockout policy."},
	{credkit.MetricRegisterSuccess, "credkit_register_success_total", "Accounts created."},
	{credkit.MetricRegisterDuplicate, "credkit_register_duplicate_total", "Registrations hitting an existing identifier."},
	{credkit.MetricRefreshSuccess, "credkit_refresh_success_total", "Successful refresh token rotations."},
	{credkit.MetricRefreshFailure, "credkit_refresh_failure_total", "Refreshes rejected for an invalid token."},
	{credkit.MetricRefreshReuseDetected, "credkit_refresh_reuse_total", "Presentations of a superseded refresh token."},
	{credkit.MetricRefreshRateLimited, "credkit_refresh_rate_limited_total", "Refreshes rejected by the rate limiter."},
	{credkit.MetricLogout, "credkit_logout_total", "Successful logouts."},
	{credkit.MetricStoreUnavailable, "credkit_store_unavailable_total", "Rate limit backend outages observed."},
	{credkit.MetricVerifyLatency, "credkit_verify_latency_ms", "VerifyAccess latency histogram."},
}

// histogramBoundSuffix must track the bucket layout of the core metrics
// block: one gauge per bucket, cumulative, last bucket unbounded.
var histogramBoundSuffix = [8]string{"5ms", "10ms", "25ms", "50ms", "100ms", "250ms", "500ms", "inf"}

type observedCounter struct {
	id         credkit.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      credkit.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter bridges the engine's in-process metrics block to an
// OpenTelemetry meter using observable instruments, so snapshots are
// taken only when the reader collects.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	histogram    observedHistogram
}

// NewExporter registers observable instruments for an engine.
func NewExporter(meter metric.Meter, engine *credkit.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source (tests).
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{source: source}
	observables := make([]metric.Observable, 0, len(counterDefs)+len(histogramBoundSuffix)+1)

	for _, def := range counterDefs {
		if def.ID == credkit.MetricVerifyLatency {
			h := observedHistogram{id: def.ID}
			for i := 0; i < len(histogramBoundSuffix); i++ {
				name := def.Name + "_bucket_le_" + histogramBoundSuffix[i]
				ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
				if err != nil {
					return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
				}
				h.buckets[i] = ins
				observables = append(observables, ins)
			}
			countIns, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram count gauge %s: %w", def.Name, err)
			}
			h.count = countIns
			observables = append(observables, countIns)
			exporter.histogram = h
			continue
		}

		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		buckets := snapshot.Histograms[exporter.histogram.id]
		var cumulative int64
		for i := 0; i < len(exporter.histogram.buckets); i++ {
			if i < len(buckets) {
				cumulative += int64(buckets[i])
			}
			observer.ObserveInt64(exporter.histogram.buckets[i], cumulative)
		}
		observer.ObserveInt64(exporter.histogram.count, cumulative)
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the callback. Safe on a nil receiver.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
