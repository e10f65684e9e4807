package domain

import "context"

// Transaction exposes the operations a QC persistence implementation must
// support within an atomic scope. Observations and evaluations are
// append-only; targets may be replaced.
type Transaction interface {
	Snapshot() TransactionView
	PutTarget(QCTarget) (QCTarget, error)
	DeleteTarget(key string) error
	AppendObservation(targetKey string, obs QCObservation) (QCObservation, error)
	AppendEvaluation(record QCEvaluationRecord) (QCEvaluationRecord, error)
}

// TransactionView provides read-only access to snapshot data for integrity
// rules and dry-run evaluations. Observation and evaluation slices are
// returned in insertion (chronological) order.
type TransactionView interface {
	ListTargets() []QCTarget
	FindTarget(key string) (QCTarget, bool)
	Observations(targetKey string) []QCObservation
	Evaluations(targetKey string) []QCEvaluationRecord
}

// PersistentStore is a minimal abstraction over durable QC history backends.
// Implementations must present each evaluation call with a consistent
// snapshot: histories reflect a total order matching actual insertion order.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	FindTarget(key string) (QCTarget, bool)
	ListTargets() []QCTarget
	Observations(targetKey string) []QCObservation
	Evaluations(targetKey string) []QCEvaluationRecord
}
