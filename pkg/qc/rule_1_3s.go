package qc

import (
	"math"

	"gclabcore/pkg/domain"
)

// rule13s fires when the newest point is at or beyond 3 SD on either side.
// A single-point rule, so it applies even to the very first observation.
type rule13s struct{}

func (rule13s) Name() domain.RuleName { return domain.Rule13s }
func (rule13s) Window() int           { return 1 }
func (rule13s) Critical() bool        { return true }

func (rule13s) Fires(zs []float64) bool {
	return math.Abs(zs[len(zs)-1]) >= 3
}
