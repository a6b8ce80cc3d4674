package exporters

import (
	"context"
	"testing"
)

func TestNewTracingExporter_None(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "none")
	if err != nil {
		t.Fatalf("none exporter failed: %v", err)
	}
	if exp == nil {
		t.Fatal("none exporter should be non-nil (discarding)")
	}
	defer exp.Shutdown(context.Background())
}

func TestNewTracingExporter_Unknown(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "zipkin"); err == nil {
		t.Error("unknown exporter name should fail")
	}
}

func TestNewTracingExporter_OTLPWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp"); err == nil {
		t.Error("otlp without an endpoint should fail")
	}
}

func TestNewMetricsReader_None(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "none")
	if err != nil {
		t.Fatalf("none reader failed: %v", err)
	}
	if reader == nil {
		t.Fatal("none reader should be non-nil (discarding)")
	}
	defer reader.Shutdown(context.Background())
}

func TestNewMetricsReader_Unknown(t *testing.T) {
	if _, err := NewMetricsReader(context.Background(), "statsd"); err == nil {
		t.Error("unknown reader name should fail")
	}
}

func TestNewMetricsReader_OTLPWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewMetricsReader(context.Background(), "otlp"); err == nil {
		t.Error("otlp without an endpoint should fail")
	}
}
