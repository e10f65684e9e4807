package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderAccumulates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "gclab_service_metrics_") {
		t.Fatalf("unexpected expvar name %q", rec.Name())
	}
	ctx := context.Background()

	rec.Observe(ctx, "put_target", true, 10*time.Millisecond)
	rec.Observe(ctx, "put_target", true, 5*time.Millisecond)
	rec.Observe(ctx, "put_target", false, 2*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["put_target"]; got != 17 {
		t.Fatalf("duration total: got %v want 17", got)
	}
	if snap.Results["put_target"]["success"] != 2 {
		t.Fatalf("success count: %+v", snap.Results)
	}
	if snap.Results["put_target"]["error"] != 1 {
		t.Fatalf("error count: %+v", snap.Results)
	}

	// Snapshot copies must not alias internal state.
	snap.DurationsMS["put_target"] = 0
	if rec.Snapshot().DurationsMS["put_target"] != 17 {
		t.Fatalf("snapshot shares internal maps")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(registry)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "record_observation", true, 3*time.Millisecond)
	rec.Observe(ctx, "record_observation", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("record_observation", "success")); got != 1 {
		t.Fatalf("success counter: got %v want 1", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("record_observation", "error")); got != 1 {
		t.Fatalf("error counter: got %v want 1", got)
	}

	// Double registration on the same registry must fail loudly.
	if _, err := NewPrometheusMetricsRecorder(registry); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestJSONTraceTracer(t *testing.T) {
	buf := &bytes.Buffer{}
	tracer := NewJSONTracer(buf)
	ctx := context.Background()

	_, span := tracer.Start(ctx, "vandeemter_optimize")
	span.End(nil)
	_, span = tracer.Start(ctx, "pressure_drop")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Operation != "vandeemter_optimize" || entries[0].Status != "success" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded.Operation != "pressure_drop" {
		t.Fatalf("unexpected decoded entry: %+v", decoded)
	}
}

func TestJSONTracerNilWriter(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "op")
	span.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatalf("entries must be retained without a writer")
	}
}
