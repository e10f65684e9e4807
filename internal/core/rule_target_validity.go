package core

import (
	"context"
	"fmt"

	"gclabcore/pkg/domain"
)

// NewTargetValidityRule returns the in-transaction rule blocking targets that
// the QC engine could never evaluate: non-positive SD, an NRequired below
// one, or a missing identity component.
func NewTargetValidityRule() domain.Rule {
	return targetValidityRule{}
}

type targetValidityRule struct{}

func (targetValidityRule) Name() string { return "qc_target_validity" }

func (targetValidityRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, target := range view.ListTargets() {
		for _, reason := range targetProblems(target) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "qc_target_validity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("target %s: %s", target.Key(), reason),
				Entity:   domain.EntityQCTarget,
				EntityID: target.Key(),
			})
		}
	}
	return res, nil
}

func targetProblems(target domain.QCTarget) []string {
	var problems []string
	if target.MethodID == "" {
		problems = append(problems, "method id is required")
	}
	if target.Analyte == "" {
		problems = append(problems, "analyte is required")
	}
	if target.SD <= 0 {
		problems = append(problems, "sd must be > 0")
	}
	if target.NRequired < 1 {
		problems = append(problems, "n_required must be >= 1")
	}
	return problems
}
