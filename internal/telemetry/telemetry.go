// Package telemetry installs the OpenTelemetry trace and metric providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/config"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
)

// Options selects the exporters and sampling.
type Options struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	Insecure     bool
	ServiceName  string
	SampleRatio  float64
	ExportPeriod time.Duration
	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// OptionsFromConfig maps application configuration to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Enabled:      cfg.OTelEnabled,
		Exporter:     cfg.OTelExporter,
		Endpoint:     cfg.OTelEndpoint,
		Insecure:     cfg.OTelInsecure,
		ServiceName:  cfg.OTelServiceName,
		SampleRatio:  cfg.OTelSampleRatio,
		ExportPeriod: cfg.OTelExportPeriod,
	}
}

// ShutdownFunc flushes and stops the providers.
type ShutdownFunc func(ctx context.Context) error

// Setup installs global trace and metric providers. When telemetry is
// disabled the global no-op providers are left in place and the returned
// ShutdownFunc does nothing.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if !opts.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.ExportPeriod <= 0 {
		opts.ExportPeriod = time.Minute
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", opts.ServiceName),
		),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("OpenTelemetry resource init failed, continuing")
	}

	traceExp, err := newTraceExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	metricExp, err := newMetricExporter(ctx, opts)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(opts.ExportPeriod))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Log.Info().
		Str("exporter", opts.Exporter).
		Str("service", opts.ServiceName).
		Float64("sample_ratio", opts.SampleRatio).
		Msg("OpenTelemetry initialized")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func hasScheme(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}

func newTraceExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case config.ExporterOTLPGRPC:
		var o []otlptracegrpc.Option
		if hasScheme(opts.Endpoint) {
			o = append(o, otlptracegrpc.WithEndpointURL(opts.Endpoint))
		} else {
			o = append(o, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			o = append(o, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, o...)
	case config.ExporterOTLPHTTP:
		var o []otlptracehttp.Option
		if hasScheme(opts.Endpoint) {
			o = append(o, otlptracehttp.WithEndpointURL(opts.Endpoint))
		} else {
			o = append(o, otlptracehttp.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			o = append(o, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, o...)
	case config.ExporterStdout, "":
		return stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
	default:
		return nil, fmt.Errorf("unknown exporter %q", opts.Exporter)
	}
}

func newMetricExporter(ctx context.Context, opts Options) (sdkmetric.Exporter, error) {
	switch opts.Exporter {
	case config.ExporterOTLPGRPC:
		var o []otlpmetricgrpc.Option
		if hasScheme(opts.Endpoint) {
			o = append(o, otlpmetricgrpc.WithEndpointURL(opts.Endpoint))
		} else {
			o = append(o, otlpmetricgrpc.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			o = append(o, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, o...)
	case config.ExporterOTLPHTTP:
		var o []otlpmetrichttp.Option
		if hasScheme(opts.Endpoint) {
			o = append(o, otlpmetrichttp.WithEndpointURL(opts.Endpoint))
		} else {
			o = append(o, otlpmetrichttp.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			o = append(o, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, o...)
	case config.ExporterStdout, "":
		return stdoutmetric.New(stdoutmetric.WithWriter(opts.Writer))
	default:
		return nil, fmt.Errorf("unknown exporter %q", opts.Exporter)
	}
}

// HTTPClient returns an HTTP client whose requests are traced. The Telegram
// long-poll request holds the connection for up to the poll timeout, so the
// client timeout must exceed it.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
