package qc

import "gclabcore/pkg/domain"

// rule22s fires when the two most recent points are both at or beyond 2 SD
// on the same side of the mean.
type rule22s struct{}

func (rule22s) Name() domain.RuleName { return domain.Rule22s }
func (rule22s) Window() int           { return 2 }
func (rule22s) Critical() bool        { return true }

func (rule22s) Fires(zs []float64) bool {
	w := last(zs, 2)
	return (w[0] >= 2 && w[1] >= 2) || (w[0] <= -2 && w[1] <= -2)
}
