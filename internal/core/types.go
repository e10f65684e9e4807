package core

import "gclabcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine

	ColumnSpec           = domain.ColumnSpec
	MethodConditions     = domain.MethodConditions
	VanDeemterResult     = domain.VanDeemterResult
	PressureDropResult   = domain.PressureDropResult
	OptimalFlowResult    = domain.OptimalFlowResult
	RetentionIndexInput  = domain.RetentionIndexInput
	RetentionIndexResult = domain.RetentionIndexResult

	QCTarget           = domain.QCTarget
	QCObservation      = domain.QCObservation
	QCEvaluation       = domain.QCEvaluation
	QCEvaluationRecord = domain.QCEvaluationRecord
	QCPolicy           = domain.QCPolicy
	QCStatus           = domain.QCStatus
)

const (
	EntityQCTarget      = domain.EntityQCTarget
	EntityQCObservation = domain.EntityQCObservation
	EntityQCEvaluation  = domain.EntityQCEvaluation
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine re-exports the domain constructor for hosts that assemble
// their own rule set.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
