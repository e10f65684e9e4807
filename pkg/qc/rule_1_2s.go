package qc

import (
	"math"

	"gclabcore/pkg/domain"
)

// rule12s fires when the newest point is at or beyond 2 SD on either side.
// It is a warning rule: on its own it never fails a run.
type rule12s struct{}

func (rule12s) Name() domain.RuleName { return domain.Rule12s }
func (rule12s) Window() int           { return 1 }
func (rule12s) Critical() bool        { return false }

func (rule12s) Fires(zs []float64) bool {
	return math.Abs(zs[len(zs)-1]) >= 2
}
