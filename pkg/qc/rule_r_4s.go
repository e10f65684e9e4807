package qc

import "gclabcore/pkg/domain"

// ruleR4s fires when the two most recent points land at or beyond 2 SD on
// opposite sides of the mean, spanning a range of at least 4 SD. Two
// excursions on the same side are left to 2-2s.
type ruleR4s struct{}

func (ruleR4s) Name() domain.RuleName { return domain.RuleR4s }
func (ruleR4s) Window() int           { return 2 }
func (ruleR4s) Critical() bool        { return true }

func (ruleR4s) Fires(zs []float64) bool {
	w := last(zs, 2)
	return (w[0] >= 2 && w[1] <= -2) || (w[0] <= -2 && w[1] >= 2)
}
