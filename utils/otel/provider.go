// Package otel wires the OpenTelemetry trace and log providers.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls the OpenTelemetry providers.
type Config struct {
	ServiceName  string
	OTLPEndpoint string
	Enabled      bool
}

// ConfigFromEnv reads OTel settings from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		ServiceName:  "lms-gateway",
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Enabled:      true,
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		cfg.ServiceName = name
	}
	if enabled := os.Getenv("OTEL_ENABLED"); enabled != "" {
		if parsed, err := strconv.ParseBool(enabled); err == nil {
			cfg.Enabled = parsed
		}
	}
	return cfg
}

// InitProvider sets up trace and log providers with OTLP/HTTP exporters.
// Returns a shutdown function; when disabled the providers are no-ops.
func InitProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	var traceOpts []otlptracehttp.Option
	var logOpts []otlploghttp.Option
	if cfg.OTLPEndpoint != "" {
		traceOpts = append(traceOpts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		logOpts = append(logOpts, otlploghttp.WithEndpointURL(cfg.OTLPEndpoint))
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)

	return func(shutdownCtx context.Context) error {
		traceErr := tracerProvider.Shutdown(shutdownCtx)
		logErr := loggerProvider.Shutdown(shutdownCtx)
		if traceErr != nil {
			return traceErr
		}
		return logErr
	}, nil
}
