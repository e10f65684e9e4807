package qc

import "gclabcore/pkg/domain"

// rule10x fires when the ten most recent points all fall on the same side of
// the mean, indicating systematic bias. A point exactly on the mean breaks
// the streak.
type rule10x struct{}

func (rule10x) Name() domain.RuleName { return domain.Rule10x }
func (rule10x) Window() int           { return 10 }
func (rule10x) Critical() bool        { return true }

func (rule10x) Fires(zs []float64) bool {
	w := last(zs, 10)
	above, below := true, true
	for _, z := range w {
		above = above && z > 0
		below = below && z < 0
	}
	return above || below
}
