// Package memory provides an in-memory implementation of the QC persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gclabcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// QCTarget aliases domain.QCTarget for in-memory persistence operations.
	QCTarget = domain.QCTarget
	// QCObservation aliases domain.QCObservation.
	QCObservation = domain.QCObservation
	// QCEvaluationRecord aliases domain.QCEvaluationRecord.
	QCEvaluationRecord = domain.QCEvaluationRecord
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	targets      map[string]QCTarget
	observations map[string][]QCObservation
	evaluations  map[string][]QCEvaluationRecord
}

// Snapshot captures a point-in-time clone of the store state. It is the
// interchange format used by the durable backends.
type Snapshot struct {
	Targets      map[string]QCTarget             `json:"targets"`
	Observations map[string][]QCObservation      `json:"observations"`
	Evaluations  map[string][]QCEvaluationRecord `json:"evaluations"`
}

func newMemoryState() memoryState {
	return memoryState{
		targets:      make(map[string]QCTarget),
		observations: make(map[string][]QCObservation),
		evaluations:  make(map[string][]QCEvaluationRecord),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.targets {
		cloned.targets[k] = v
	}
	for k, v := range s.observations {
		cloned.observations[k] = append([]QCObservation(nil), v...)
	}
	for k, v := range s.evaluations {
		cloned.evaluations[k] = cloneEvaluations(v)
	}
	return cloned
}

func cloneEvaluations(records []QCEvaluationRecord) []QCEvaluationRecord {
	out := make([]QCEvaluationRecord, len(records))
	for i, r := range records {
		out[i] = cloneEvaluation(r)
	}
	return out
}

func cloneEvaluation(r QCEvaluationRecord) QCEvaluationRecord {
	cp := r
	cp.Evaluation.RuleHits = append([]domain.RuleName(nil), r.Evaluation.RuleHits...)
	cp.Evaluation.DegradedRules = append([]domain.RuleName(nil), r.Evaluation.DegradedRules...)
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Targets:      make(map[string]QCTarget, len(state.targets)),
		Observations: make(map[string][]QCObservation, len(state.observations)),
		Evaluations:  make(map[string][]QCEvaluationRecord, len(state.evaluations)),
	}
	for k, v := range state.targets {
		s.Targets[k] = v
	}
	for k, v := range state.observations {
		s.Observations[k] = append([]QCObservation(nil), v...)
	}
	for k, v := range state.evaluations {
		s.Evaluations[k] = cloneEvaluations(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Targets {
		state.targets[k] = v
	}
	for k, v := range s.Observations {
		state.observations[k] = append([]QCObservation(nil), v...)
	}
	for k, v := range s.Evaluations {
		state.evaluations[k] = cloneEvaluations(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from older files: nil maps are
// allocated and histories are kept only for keys with at least one record.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Targets == nil {
		snapshot.Targets = map[string]QCTarget{}
	}
	if snapshot.Observations == nil {
		snapshot.Observations = map[string][]QCObservation{}
	}
	if snapshot.Evaluations == nil {
		snapshot.Evaluations = map[string][]QCEvaluationRecord{}
	}
	for key, series := range snapshot.Observations {
		if len(series) == 0 {
			delete(snapshot.Observations, key)
		}
	}
	for key, records := range snapshot.Evaluations {
		if len(records) == 0 {
			delete(snapshot.Evaluations, key)
		}
	}
	return snapshot
}

// Store provides an in-memory transactional store for QC targets and their
// append-only observation and evaluation histories.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   memoryState
	changes []Change
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListTargets returns all targets within the snapshot, sorted by key.
func (v transactionView) ListTargets() []QCTarget {
	out := make([]QCTarget, 0, len(v.state.targets))
	for _, t := range v.state.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// FindTarget retrieves a target by composite key from the snapshot.
func (v transactionView) FindTarget(key string) (QCTarget, bool) {
	t, ok := v.state.targets[key]
	return t, ok
}

// Observations returns the chronological observation series for a target.
func (v transactionView) Observations(targetKey string) []QCObservation {
	return append([]QCObservation(nil), v.state.observations[targetKey]...)
}

// Evaluations returns the persisted evaluation records for a target.
func (v transactionView) Evaluations(targetKey string) []QCEvaluationRecord {
	return cloneEvaluations(v.state.evaluations[targetKey])
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn succeeds and no registered
// integrity rule reports a blocking violation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// FindTarget retrieves a target outside any transaction.
func (s *Store) FindTarget(key string) (QCTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.targets[key]
	return t, ok
}

// ListTargets lists all stored targets, sorted by key.
func (s *Store) ListTargets() []QCTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListTargets()
}

// Observations returns the chronological observation series for a target.
func (s *Store) Observations(targetKey string) []QCObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QCObservation(nil), s.state.observations[targetKey]...)
}

// Evaluations returns the persisted evaluation records for a target.
func (s *Store) Evaluations(targetKey string) []QCEvaluationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvaluations(s.state.evaluations[targetKey])
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// PutTarget creates or replaces a target keyed by its composite identity.
func (tx *transaction) PutTarget(target QCTarget) (QCTarget, error) {
	key := target.Key()
	action := domain.ActionCreate
	var before any
	if existing, ok := tx.state.targets[key]; ok {
		action = domain.ActionUpdate
		before = existing
	}
	tx.state.targets[key] = target
	tx.recordChange(Change{Entity: domain.EntityQCTarget, Action: action, Key: key, Before: before, After: target})
	return target, nil
}

// DeleteTarget removes a target. Observation and evaluation histories are
// retained for the audit trail.
func (tx *transaction) DeleteTarget(key string) error {
	current, ok := tx.state.targets[key]
	if !ok {
		return fmt.Errorf("qc target %q not found", key)
	}
	delete(tx.state.targets, key)
	tx.recordChange(Change{Entity: domain.EntityQCTarget, Action: domain.ActionDelete, Key: key, Before: current})
	return nil
}

// AppendObservation appends a control measurement to a target's history.
func (tx *transaction) AppendObservation(targetKey string, obs QCObservation) (QCObservation, error) {
	if _, ok := tx.state.targets[targetKey]; !ok {
		return QCObservation{}, fmt.Errorf("qc target %q not found", targetKey)
	}
	tx.state.observations[targetKey] = append(tx.state.observations[targetKey], obs)
	tx.recordChange(Change{Entity: domain.EntityQCObservation, Action: domain.ActionCreate, Key: targetKey, After: obs})
	return obs, nil
}

// AppendEvaluation appends a persisted evaluation record.
func (tx *transaction) AppendEvaluation(record QCEvaluationRecord) (QCEvaluationRecord, error) {
	if record.TargetKey == "" {
		return QCEvaluationRecord{}, fmt.Errorf("evaluation record requires a target key")
	}
	stored := cloneEvaluation(record)
	tx.state.evaluations[record.TargetKey] = append(tx.state.evaluations[record.TargetKey], stored)
	tx.recordChange(Change{Entity: domain.EntityQCEvaluation, Action: domain.ActionCreate, Key: record.TargetKey, After: stored})
	return cloneEvaluation(stored), nil
}
