package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gclabcore/pkg/calc"
	"gclabcore/pkg/domain"
	"gclabcore/pkg/qc"
)

// Service exposes the calculators and the transactional QC workflow behind a
// single instrumented facade. All methods are safe for concurrent use as long
// as the underlying store is.
type Service struct {
	store   domain.PersistentStore
	engine  *qc.Engine
	policy  domain.QCPolicy
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		engine:  qc.NewEngine(),
		policy:  domain.DefaultQCPolicy(),
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Policy returns the QC policy applied to evaluations.
func (s *Service) Policy() domain.QCPolicy {
	return s.policy
}

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	Key    string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// auditedOperations maps state-changing operations to their audit metadata.
// Operations absent from the map never produce audit entries.
var auditedOperations = map[string]struct {
	entity EntityType
	action Action
}{
	"put_target":         {entity: EntityQCTarget, action: ActionUpdate},
	"delete_target":      {entity: EntityQCTarget, action: ActionDelete},
	"record_observation": {entity: EntityQCObservation, action: ActionCreate},
}

// instrument wraps an operation with tracing, metrics, and logging.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation, "duration_ms", float64(duration)/float64(time.Millisecond))
	}
	return err
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := auditedOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, opErr error, duration time.Duration) {
	meta, ok := auditedOperations[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	s.audit.Record(ctx, entry)
}

// audited wraps a state-changing operation with instrumentation plus an audit
// entry keyed by the entity id the operation reports.
func (s *Service) audited(ctx context.Context, operation string, fn func(context.Context) (string, error)) error {
	return s.instrument(ctx, operation, func(ctx context.Context) error {
		start := time.Now()
		entityID, err := fn(ctx)
		duration := time.Since(start)
		if err != nil {
			s.recordAuditError(ctx, operation, entityID, err, duration)
			return err
		}
		s.recordAuditSuccess(ctx, operation, entityID, duration)
		return nil
	})
}

// VanDeemterOptimize computes the optimal linear velocity and minimum plate
// height for the column.
func (s *Service) VanDeemterOptimize(ctx context.Context, column ColumnSpec, conditions MethodConditions) (VanDeemterResult, error) {
	var result VanDeemterResult
	err := s.instrument(ctx, "vandeemter_optimize", func(context.Context) error {
		var err error
		result, err = calc.VanDeemterOptimize(column, conditions)
		return err
	})
	return result, err
}

// PressureDropCalculate computes the pressure drop and required inlet
// pressure for the method flow. Packed-column handling follows the column's
// particle size.
func (s *Service) PressureDropCalculate(ctx context.Context, column ColumnSpec, conditions MethodConditions) (PressureDropResult, error) {
	var result PressureDropResult
	err := s.instrument(ctx, "pressure_drop", func(context.Context) error {
		var err error
		result, err = calc.PressureDropCalculate(column, conditions, column.Packed())
		return err
	})
	if err == nil && !result.Safe {
		s.logger.Warn("pressure above recommended maximum", "required_psi", result.InletPressureRequiredPSI, "max_psi", result.MaxRecommendedPSI)
	}
	return result, err
}

// OptimalFlow recommends the compressibility-corrected volumetric flow for
// the column's Van Deemter optimum.
func (s *Service) OptimalFlow(ctx context.Context, column ColumnSpec, conditions MethodConditions) (OptimalFlowResult, error) {
	var result OptimalFlowResult
	err := s.instrument(ctx, "optimal_flow", func(context.Context) error {
		var err error
		result, err = calc.OptimalFlow(column, conditions)
		return err
	})
	return result, err
}

// RetentionIndexCalculate computes Kovats, Lee, and programmed-temperature
// indices for a bracketed unknown peak.
func (s *Service) RetentionIndexCalculate(ctx context.Context, input RetentionIndexInput) (RetentionIndexResult, error) {
	var result RetentionIndexResult
	err := s.instrument(ctx, "retention_index", func(context.Context) error {
		var err error
		result, err = calc.RetentionIndexCalculate(input)
		return err
	})
	return result, err
}

// PutTarget creates or replaces a QC target.
func (s *Service) PutTarget(ctx context.Context, target QCTarget) (QCTarget, Result, error) {
	var (
		stored QCTarget
		res    Result
	)
	err := s.audited(ctx, "put_target", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			stored, txErr = tx.PutTarget(target)
			return txErr
		})
		return target.Key(), err
	})
	return stored, res, err
}

// DeleteTarget removes a QC target. Its observation and evaluation history
// remains for the audit trail.
func (s *Service) DeleteTarget(ctx context.Context, key string) (Result, error) {
	var res Result
	err := s.audited(ctx, "delete_target", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteTarget(key)
		})
		return key, err
	})
	return res, err
}

// RecordOutcome is the result of recording one control observation: the
// persisted evaluation and whether the host should halt the run sequence.
type RecordOutcome struct {
	Record QCEvaluationRecord
	Halt   bool
}

// RecordObservation appends a control observation, evaluates it against the
// target's history, and persists the evaluation, all in one transaction. The
// observation and its evaluation are therefore either both stored or neither.
func (s *Service) RecordObservation(ctx context.Context, targetKey string, obs QCObservation) (RecordOutcome, Result, error) {
	var (
		outcome RecordOutcome
		res     Result
	)
	err := s.audited(ctx, "record_observation", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			target, ok := view.FindTarget(targetKey)
			if !ok {
				return ErrNotFound{Entity: EntityQCTarget, Key: targetKey}
			}
			history := view.Observations(targetKey)
			eval, evalErr := s.engine.Evaluate(target, history, obs, s.policy)
			if evalErr != nil {
				return evalErr
			}
			if _, txErr := tx.AppendObservation(targetKey, obs); txErr != nil {
				return txErr
			}
			record := QCEvaluationRecord{
				ID:            uuid.NewString(),
				TargetKey:     targetKey,
				RunID:         obs.RunID,
				ObservedValue: obs.Value,
				Evaluation:    eval,
				EvaluatedAt:   s.clock.Now(),
			}
			stored, txErr := tx.AppendEvaluation(record)
			if txErr != nil {
				return txErr
			}
			outcome = RecordOutcome{
				Record: stored,
				Halt:   s.policy.StopOnFail && eval.Status == domain.QCStatusFail,
			}
			return nil
		})
		return outcome.Record.ID, err
	})
	if err == nil && outcome.Halt {
		s.logger.Warn("qc failure halts sequence", "target", targetKey, "run_id", obs.RunID, "rules", outcome.Record.Evaluation.RuleHits)
	}
	return outcome, res, err
}

// EvaluateObservation scores an observation against the stored history
// without persisting anything. Useful for pre-run what-if checks.
func (s *Service) EvaluateObservation(ctx context.Context, targetKey string, obs QCObservation) (QCEvaluation, error) {
	var eval QCEvaluation
	err := s.instrument(ctx, "evaluate_observation", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			target, ok := view.FindTarget(targetKey)
			if !ok {
				return ErrNotFound{Entity: EntityQCTarget, Key: targetKey}
			}
			var evalErr error
			eval, evalErr = s.engine.Evaluate(target, view.Observations(targetKey), obs, s.policy)
			return evalErr
		})
	})
	return eval, err
}

// FindTarget returns the stored target for a composite key.
func (s *Service) FindTarget(ctx context.Context, key string) (QCTarget, error) {
	target, ok := s.store.FindTarget(key)
	if !ok {
		return QCTarget{}, ErrNotFound{Entity: EntityQCTarget, Key: key}
	}
	return target, nil
}

// Targets lists all stored QC targets.
func (s *Service) Targets(ctx context.Context) []QCTarget {
	return s.store.ListTargets()
}

// History returns the chronological observation series for a target.
func (s *Service) History(ctx context.Context, targetKey string) []QCObservation {
	return s.store.Observations(targetKey)
}

// Evaluations returns the persisted evaluation records for a target.
func (s *Service) Evaluations(ctx context.Context, targetKey string) []QCEvaluationRecord {
	return s.store.Evaluations(targetKey)
}
