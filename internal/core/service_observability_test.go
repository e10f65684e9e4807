package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"gclabcore/pkg/domain"
)

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *captureLogger) log(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, level+":"+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *captureLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e == entry {
			return true
		}
	}
	return false
}

type metricsObservation struct {
	operation string
	success   bool
	duration  time.Duration
}

type captureMetricsRecorder struct {
	mu           sync.Mutex
	observations []metricsObservation
}

func (r *captureMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.mu.Lock()
	r.observations = append(r.observations, metricsObservation{operation, success, duration})
	r.mu.Unlock()
}

type captureTracer struct {
	mu    sync.Mutex
	spans []*captureSpan
}

type captureSpan struct {
	operation string
	ended     bool
	err       error
}

func (t *captureTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	span := &captureSpan{operation: operation}
	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return ctx, span
}

func (s *captureSpan) End(err error) {
	s.ended = true
	s.err = err
}

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

func (r *captureAuditRecorder) all() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

func TestServiceInstrumentationOnSuccess(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	audit := &captureAuditRecorder{}
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	if _, _, err := svc.PutTarget(context.Background(), testTarget()); err != nil {
		t.Fatalf("put target: %v", err)
	}

	if len(metrics.observations) != 1 {
		t.Fatalf("expected one metrics observation, got %d", len(metrics.observations))
	}
	obs := metrics.observations[0]
	if obs.operation != "put_target" || !obs.success {
		t.Fatalf("unexpected observation: %+v", obs)
	}

	if len(tracer.spans) != 1 || !tracer.spans[0].ended || tracer.spans[0].err != nil {
		t.Fatalf("unexpected span state: %+v", tracer.spans)
	}
	if tracer.spans[0].operation != "put_target" {
		t.Fatalf("span operation: %q", tracer.spans[0].operation)
	}

	entries := audit.all()
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Operation != "put_target" || entry.Entity != EntityQCTarget || entry.Action != ActionUpdate {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.Status != AuditStatusSuccess || entry.EntityID != testTarget().Key() {
		t.Fatalf("unexpected audit outcome: %+v", entry)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("audit timestamp must come from the service clock")
	}

	if !logger.has("debug:operation completed") {
		t.Fatalf("expected completion log, got %v", logger.entries)
	}
}

func TestServiceInstrumentationOnFailure(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	audit := &captureAuditRecorder{}

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
	)

	invalid := testTarget()
	invalid.SD = 0
	if _, _, err := svc.PutTarget(context.Background(), invalid); err == nil {
		t.Fatalf("expected rule violation")
	}

	if len(metrics.observations) != 1 || metrics.observations[0].success {
		t.Fatalf("expected failed observation: %+v", metrics.observations)
	}
	if len(tracer.spans) != 1 || tracer.spans[0].err == nil {
		t.Fatalf("span must record the error")
	}
	entries := audit.all()
	if len(entries) != 1 || entries[0].Status != AuditStatusError || entries[0].Error == "" {
		t.Fatalf("expected error audit entry: %+v", entries)
	}
	if !logger.has("error:operation failed") {
		t.Fatalf("expected failure log, got %v", logger.entries)
	}
}

func TestCalculatorsAreNotAudited(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	audit := &captureAuditRecorder{}
	svc := NewInMemoryService(nil, WithMetricsRecorder(metrics), WithAuditRecorder(audit))

	column := ColumnSpec{LengthM: 30, IDmm: 0.25}
	conditions := MethodConditions{TemperatureC: 100, FlowMLMin: 1.0, CarrierGas: domain.GasHelium}
	if _, err := svc.VanDeemterOptimize(context.Background(), column, conditions); err != nil {
		t.Fatalf("van deemter: %v", err)
	}

	if len(metrics.observations) != 1 {
		t.Fatalf("calculators are still measured: %+v", metrics.observations)
	}
	if len(audit.all()) != 0 {
		t.Fatalf("read-only operations must not audit: %+v", audit.all())
	}
}

func TestRecordObservationAuditsEvaluationID(t *testing.T) {
	audit := &captureAuditRecorder{}
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithAuditRecorder(audit))
	ctx := context.Background()
	target := testTarget()
	if _, _, err := svc.PutTarget(ctx, target); err != nil {
		t.Fatalf("put target: %v", err)
	}

	outcome, _, err := svc.RecordObservation(ctx, target.Key(), observation("run-001", 101, time.Now().UTC()))
	if err != nil {
		t.Fatalf("record observation: %v", err)
	}

	entries := audit.all()
	if len(entries) != 2 {
		t.Fatalf("expected put + record audit entries, got %d", len(entries))
	}
	last := entries[1]
	if last.Operation != "record_observation" || last.Entity != EntityQCObservation || last.Action != ActionCreate {
		t.Fatalf("unexpected audit entry: %+v", last)
	}
	if last.EntityID != outcome.Record.ID {
		t.Fatalf("audit must reference the evaluation record id")
	}
}
