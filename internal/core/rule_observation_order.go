package core

import (
	"context"
	"fmt"

	"gclabcore/pkg/domain"
)

// NewObservationOrderRule returns the in-transaction rule that flags control
// observations appended with a timestamp earlier than their predecessor.
// Instrument clock skew makes this a warning, not a block: evaluation order
// is defined by insertion order, not timestamps.
func NewObservationOrderRule() domain.Rule {
	return observationOrderRule{}
}

type observationOrderRule struct{}

func (observationOrderRule) Name() string { return "qc_observation_order" }

func (observationOrderRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	seen := make(map[string]bool)
	for _, change := range changes {
		if change.Entity != domain.EntityQCObservation || change.Action != domain.ActionCreate {
			continue
		}
		if seen[change.Key] {
			continue
		}
		seen[change.Key] = true

		series := view.Observations(change.Key)
		for i := 1; i < len(series); i++ {
			if series[i].Timestamp.Before(series[i-1].Timestamp) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "qc_observation_order",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("observation %d for %s predates its predecessor", i, change.Key),
					Entity:   domain.EntityQCObservation,
					EntityID: change.Key,
				})
			}
		}
	}
	return res, nil
}
