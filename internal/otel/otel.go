// Package otel wires tabmux's traces and metrics to an OTLP HTTP
// collector. Without a configured endpoint every instrument still
// exists but records into the global no-op providers, so call sites
// never branch on whether telemetry is on.
package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "tabmux"

// Version is stamped by the caller from the build version before Init.
var Version = "dev"

// OTELConfig carries the exporter settings from the config layer.
type OTELConfig struct {
	Endpoint string // collector base URL, e.g. "http://localhost:4318"
	Headers  string // extra request headers as "k=v,k2=v2"
}

// Telemetry owns the providers plus the instruments the app records on.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	Tracer  trace.Tracer
	Metrics *Metrics
}

// exportTarget is the per-signal exporter destination derived from one
// endpoint URL. The SDK wants host and URL path separately; the
// standard /v1/<signal> suffix is appended per signal.
type exportTarget struct {
	host     string
	basePath string
	insecure bool
	headers  map[string]string
}

func newExportTarget(cfg OTELConfig) (exportTarget, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return exportTarget{}, fmt.Errorf("otel endpoint %q: %w", cfg.Endpoint, err)
	}
	return exportTarget{
		host:     u.Host,
		basePath: strings.TrimRight(u.Path, "/"),
		insecure: u.Scheme == "http",
		headers:  parseHeaders(cfg.Headers),
	}, nil
}

// parseHeaders decodes the OTEL_EXPORTER_OTLP_HEADERS wire format,
// comma-separated key=value pairs. Pairs without a key are skipped.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			headers[key] = strings.TrimSpace(val)
		}
	}
	return headers
}

func (e exportTarget) traceExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(e.host),
		otlptracehttp.WithURLPath(e.basePath + "/v1/traces"),
	}
	if e.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(e.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(e.headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

func (e exportTarget) metricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(e.host),
		otlpmetrichttp.WithURLPath(e.basePath + "/v1/metrics"),
	}
	if e.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(e.headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(e.headers))
	}
	return otlpmetrichttp.New(ctx, opts...)
}

// Init builds the providers and registers them globally. An empty
// endpoint skips the exporters entirely; the returned Telemetry then
// records into no-ops.
func Init(ctx context.Context, cfg OTELConfig) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.Endpoint != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(Version),
			),
			resource.WithHost(),
		)
		if err != nil {
			return nil, fmt.Errorf("otel resource: %w", err)
		}

		target, err := newExportTarget(cfg)
		if err != nil {
			return nil, err
		}

		traceExp, err := target.traceExporter(ctx)
		if err != nil {
			return nil, fmt.Errorf("otel trace exporter: %w", err)
		}
		t.tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		)

		metricExp, err := target.metricExporter(ctx)
		if err != nil {
			return nil, fmt.Errorf("otel metric exporter: %w", err)
		}
		t.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
				sdkmetric.WithInterval(15*time.Second))),
			sdkmetric.WithResource(res),
		)

		otel.SetTracerProvider(t.tp)
		otel.SetMeterProvider(t.mp)
	}

	t.Tracer = otel.Tracer(serviceName)
	metrics, err := NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	t.Metrics = metrics
	return t, nil
}

// Shutdown flushes pending spans and metric batches.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t.tp != nil {
		_ = t.tp.Shutdown(ctx)
	}
	if t.mp != nil {
		_ = t.mp.Shutdown(ctx)
	}
}
