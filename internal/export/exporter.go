// Package export materializes Levey-Jennings datasets from QC history and
// stores them as immutable artifacts in a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gclabcore/internal/blob/core"
	"gclabcore/pkg/domain"
)

// Format identifies an artifact output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures a stored Levey-Jennings artifact.
type Artifact struct {
	ID          string    `json:"id"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	TargetKey   string     `json:"target_key"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input represents an enqueue request for the worker.
type Input struct {
	TargetKey   string
	Formats     []Format
	RequestedBy string
	Reason      string
}

// HistorySource supplies the QC data an export reads. Satisfied by
// domain.PersistentStore.
type HistorySource interface {
	FindTarget(key string) (domain.QCTarget, bool)
	Observations(targetKey string) []domain.QCObservation
	Evaluations(targetKey string) []domain.QCEvaluationRecord
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	TargetKey  string    `json:"target_key"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// point is one Levey-Jennings chart point.
type point struct {
	Index     int               `json:"index"`
	RunID     string            `json:"run_id"`
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	ZScore    float64           `json:"z_score"`
	Status    domain.QCStatus   `json:"status,omitempty"`
	RuleHits  []domain.RuleName `json:"rule_hits,omitempty"`
}

// dataset is the full materialized chart payload.
type dataset struct {
	TargetKey   string    `json:"target_key"`
	Analyte     string    `json:"analyte"`
	Unit        string    `json:"unit"`
	Mean        float64   `json:"mean"`
	SD          float64   `json:"sd"`
	Points      []point   `json:"points"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Worker executes Levey-Jennings exports asynchronously.
type Worker struct {
	source HistorySource
	store  core.Store
	audit  AuditLogger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewWorker constructs an export worker. The blob store may be nil; artifacts
// are then returned inline without durable storage.
func NewWorker(source HistorySource, store core.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input Input) (Record, error) {
	if w.source == nil {
		return Record{}, fmt.Errorf("export history source not configured")
	}
	if strings.TrimSpace(input.TargetKey) == "" {
		return Record{}, fmt.Errorf("target key required")
	}
	if _, ok := w.source.FindTarget(input.TargetKey); !ok {
		return Record{}, fmt.Errorf("qc target %s not found", input.TargetKey)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		if format != FormatJSON && format != FormatCSV {
			return Record{}, fmt.Errorf("unsupported export format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		TargetKey:   input.TargetKey,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, id, StatusQueued, "")

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		return Record{}, fmt.Errorf("export queue full")
	}

	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(t task) {
	target, ok := w.source.FindTarget(t.input.TargetKey)
	if !ok {
		w.fail(t.id, fmt.Sprintf("qc target %s missing", t.input.TargetKey))
		return
	}
	w.updateStatus(t.id, StatusRunning, "")

	ds := buildDataset(target, w.source.Observations(t.input.TargetKey), w.source.Evaluations(t.input.TargetKey))

	w.mu.RLock()
	formats := append([]Format(nil), w.jobs[t.id].Formats...)
	w.mu.RUnlock()

	artifacts := make([]Artifact, 0, len(formats))
	for _, format := range formats {
		artifact, payload, err := materialize(format, ds)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		if w.store != nil {
			key := fmt.Sprintf("exports/%s/%s.%s", t.id, artifact.ID, format)
			info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), core.PutOptions{
				ContentType: artifact.ContentType,
				Metadata:    map[string]string{"target_key": ds.TargetKey, "points": strconv.Itoa(len(ds.Points))},
			})
			if err != nil {
				w.fail(t.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifact.URL = info.URL
			artifact.SizeBytes = info.Size
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(t.id, artifacts)
}

// buildDataset joins the observation series with persisted evaluations by
// position: evaluation i scores observation i when both were written by the
// same transaction.
func buildDataset(target domain.QCTarget, observations []domain.QCObservation, evaluations []domain.QCEvaluationRecord) dataset {
	ds := dataset{
		TargetKey:   target.Key(),
		Analyte:     target.Analyte,
		Unit:        target.Unit,
		Mean:        target.Mean,
		SD:          target.SD,
		Points:      make([]point, 0, len(observations)),
		GeneratedAt: time.Now().UTC(),
	}
	for i, obs := range observations {
		p := point{
			Index:     i,
			RunID:     obs.RunID,
			Timestamp: obs.Timestamp,
			Value:     obs.Value,
			ZScore:    (obs.Value - target.Mean) / target.SD,
		}
		if i < len(evaluations) {
			p.Status = evaluations[i].Evaluation.Status
			p.RuleHits = append([]domain.RuleName(nil), evaluations[i].Evaluation.RuleHits...)
			p.ZScore = evaluations[i].Evaluation.ZScore
		}
		ds.Points = append(ds.Points, p)
	}
	return ds
}

func materialize(format Format, ds dataset) (Artifact, []byte, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(ds)
		if err != nil {
			return Artifact{}, nil, fmt.Errorf("marshal json: %w", err)
		}
		return Artifact{
			ID:          uuid.NewString(),
			Format:      FormatJSON,
			ContentType: "application/json",
			SizeBytes:   int64(len(payload)),
			CreatedAt:   time.Now().UTC(),
		}, payload, nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write([]string{"index", "run_id", "timestamp", "value", "z_score", "status", "rule_hits"}); err != nil {
			return Artifact{}, nil, err
		}
		for _, p := range ds.Points {
			rules := make([]string, len(p.RuleHits))
			for i, r := range p.RuleHits {
				rules[i] = string(r)
			}
			row := []string{
				strconv.Itoa(p.Index),
				p.RunID,
				p.Timestamp.UTC().Format(time.RFC3339),
				strconv.FormatFloat(p.Value, 'g', -1, 64),
				strconv.FormatFloat(p.ZScore, 'g', -1, 64),
				string(p.Status),
				strings.Join(rules, ";"),
			}
			if err := writer.Write(row); err != nil {
				return Artifact{}, nil, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return Artifact{}, nil, err
		}
		payload := buf.Bytes()
		return Artifact{
			ID:          uuid.NewString(),
			Format:      FormatCSV,
			ContentType: "text/csv",
			SizeBytes:   int64(len(payload)),
			CreatedAt:   time.Now().UTC(),
		}, payload, nil
	default:
		return Artifact{}, nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *Worker) updateStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, status, message)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, StatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, StatusFailed, reason)
}

func (w *Worker) recordAudit(ctx context.Context, id string, status Status, note string) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	actor, targetKey, reason := "", "", ""
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		targetKey = record.TargetKey
		reason = record.Reason
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     "levey_jennings_export",
		Actor:      actor,
		TargetKey:  targetKey,
		Status:     status,
		Reason:     reason,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
