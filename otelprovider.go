package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/database-playground/sqlgrader/lib/config"
)

// exporterNone disables a signal. Logs then stay on the default slog handler.
const exporterNone = "none"

// setupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func setupOTelSDK(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error
	var err error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	// handleErr calls shutdown for cleanup and makes sure that all errors are returned.
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	otel.SetTextMapPropagator(newPropagator())

	if cfg.TracesExporter != exporterNone {
		tracerProvider, err := newTracerProvider(ctx, cfg.TracesExporter)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	}

	if cfg.LogsExporter != exporterNone {
		loggerProvider, err := newLoggerProvider(ctx, cfg.LogsExporter)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		global.SetLoggerProvider(loggerProvider)

		slog.SetDefault(slog.New(otelslog.NewHandler("sqlgrader")))
	}

	return shutdown, err
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(ctx context.Context, exporter string) (*trace.TracerProvider, error) {
	traceExporter, err := newTracerExporter(ctx, exporter)
	if err != nil {
		return nil, err
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
	)
	return tracerProvider, nil
}

func newTracerExporter(ctx context.Context, exporter string) (trace.SpanExporter, error) {
	switch exporter {
	case "", "console":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		return newOtlpTracerExporter(ctx)
	default:
		return nil, fmt.Errorf("unsupported traces exporter: %s", exporter)
	}
}

func newOtlpTracerExporter(ctx context.Context) (trace.SpanExporter, error) {
	switch protocol := otlpProtocol("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"); protocol {
	case "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf":
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}

func newLoggerProvider(ctx context.Context, exporter string) (*log.LoggerProvider, error) {
	logExporter, err := newLoggerExporter(ctx, exporter)
	if err != nil {
		return nil, err
	}

	loggerProvider := log.NewLoggerProvider(
		log.WithProcessor(
			log.NewBatchProcessor(logExporter),
		),
	)
	return loggerProvider, nil
}

func newLoggerExporter(ctx context.Context, exporter string) (log.Exporter, error) {
	switch exporter {
	case "", "console":
		return stdoutlog.New()
	case "otlp":
		return newOtlpLoggerExporter(ctx)
	default:
		return nil, fmt.Errorf("unsupported logs exporter: %s", exporter)
	}
}

func newOtlpLoggerExporter(ctx context.Context) (log.Exporter, error) {
	switch protocol := otlpProtocol("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL"); protocol {
	case "grpc":
		return otlploggrpc.New(ctx)
	case "http/protobuf":
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}

// otlpProtocol reads the signal specific protocol, then the generic one.
func otlpProtocol(signalEnv string) string {
	if protocol := os.Getenv(signalEnv); protocol != "" {
		return protocol
	}
	if protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); protocol != "" {
		return protocol
	}
	return "grpc"
}
