package common

import (
	"go.opentelemetry.io/otel/api/core"
	"go.opentelemetry.io/otel/api/key"
	"go.opentelemetry.io/otel/api/trace"
	"go.opentelemetry.io/otel/exporters/trace/jaeger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"xnopay.com/payment-gateway/log"
)

type JaegerConfig struct {
	Url         string
	ServiceName string
}

var traceProvider trace.Provider

// InitGlobalTracer installs a Jaeger export pipeline. The returned function
// flushes pending spans and must be called on shutdown. With a nil config
// tracing stays disabled and CreateTracer hands out noop tracers.
func InitGlobalTracer(cfg *JaegerConfig) func() {
	if cfg == nil || cfg.Url == "" {
		return func() {}
	}

	provider, flush, err := jaeger.NewExportPipeline(
		jaeger.WithCollectorEndpoint(cfg.Url),
		jaeger.WithProcess(jaeger.Process{
			ServiceName: cfg.ServiceName,
			Tags: []core.KeyValue{
				key.String("exporter", "jaeger"),
			},
		}),
		jaeger.WithSDK(&sdktrace.Config{DefaultSampler: sdktrace.NeverSample()}),
	)

	if err != nil {
		log.Warnf("could not connect to jaeger: %s", err.Error())
		return func() {}
	}

	traceProvider = provider
	return flush
}

func CreateTracer(name string) trace.Tracer {
	if traceProvider != nil {
		return traceProvider.Tracer(name)
	}
	return trace.NoopTracer{}
}
