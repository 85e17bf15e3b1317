package infra

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"card-registration-kit/config"
)

// ShutdownFunc はトレーサープロバイダーを終了する。
type ShutdownFunc func(context.Context) error

// Component はトレースを送るバイナリを表す。
type Component struct {
	Name    string // cardctl, card-sandbox
	Version string
}

func noopShutdown(context.Context) error { return nil }

// InitTracer はコンポーネント用のトレーサープロバイダーを登録し、終了関数を返す。
// OTEL_ENABLED=false の場合はグローバル設定に触れない。
func InitTracer(ctx context.Context, cfg *config.Config, c Component) (ShutdownFunc, error) {
	if !cfg.OtelEnabled {
		return noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OtelEndpoint))
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}
	res, err := componentResource(ctx, cfg, c)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.OtelSamplingRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// componentResource はサービス名にOTEL_SERVICE_NAMEを、コンポーネント名を属性として付与する。
func componentResource(ctx context.Context, cfg *config.Config, c Component) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.OtelServiceName),
		semconv.ServiceVersion(c.Version),
		attribute.String("card_registration.component", c.Name),
		attribute.String("card_registration.host_runtime", cfg.HostRuntime),
	}
	if cfg.GoogleCloudProject != "" {
		attrs = append(attrs, semconv.CloudProviderGCP, semconv.CloudAccountID(cfg.GoogleCloudProject))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}
