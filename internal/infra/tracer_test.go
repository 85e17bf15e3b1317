package infra

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"card-registration-kit/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), &config.Config{OtelEnabled: false}, Component{Name: "cardctl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestComponentResource(t *testing.T) {
	cfg := &config.Config{OtelServiceName: "card-registration-kit", HostRuntime: "native", GoogleCloudProject: "proj"}
	res, err := componentResource(context.Background(), cfg, Component{Name: "card-sandbox", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[attribute.Key]string{
		"service.name":                   "card-registration-kit",
		"service.version":                "1.0.0",
		"card_registration.component":    "card-sandbox",
		"card_registration.host_runtime": "native",
		"cloud.account.id":               "proj",
	}
	set := res.Set()
	for k, v := range want {
		got, ok := set.Value(k)
		if !ok || got.AsString() != v {
			t.Errorf("want %s=%s, got %v", k, v, got.Emit())
		}
	}
}

func TestSampler(t *testing.T) {
	tests := map[float64]string{
		1:   "AlwaysOnSampler",
		0:   "AlwaysOffSampler",
		0.5: "TraceIDRatioBased",
	}
	for rate, want := range tests {
		if got := sampler(rate).Description(); !strings.HasPrefix(got, want) {
			t.Errorf("sampler(%v) = %s, want prefix %s", rate, got, want)
		}
	}
}
