package qc

import "gclabcore/pkg/domain"

// rule41s fires when the four most recent points all exceed 1 SD on the same
// side of the mean, indicating a sustained shift.
type rule41s struct{}

func (rule41s) Name() domain.RuleName { return domain.Rule41s }
func (rule41s) Window() int           { return 4 }
func (rule41s) Critical() bool        { return true }

func (rule41s) Fires(zs []float64) bool {
	w := last(zs, 4)
	above, below := true, true
	for _, z := range w {
		above = above && z > 1
		below = below && z < -1
	}
	return above || below
}
