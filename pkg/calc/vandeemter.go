// Package calc implements the analytical calculators of the method
// development core: Van Deemter column-efficiency optimization, pressure
// drop and flow calculation, and retention-index computation. All functions
// are pure and safe for concurrent use.
package calc

import (
	"math"

	"gclabcore/pkg/domain"
	"gclabcore/pkg/gas"
)

// referenceFlowMLMin is the fixed "typical" operating point the efficiency
// gain is reported against.
const referenceFlowMLMin = 1.0

// VanDeemterOptimize computes the optimal linear velocity and minimum plate
// height for an open-tubular column under the supplied conditions. The A
// term is zero by the open-tubular assumption; packed-column eddy diffusion
// is out of scope for this calculator.
func VanDeemterOptimize(column domain.ColumnSpec, conditions domain.MethodConditions) (domain.VanDeemterResult, error) {
	if column.IDmm <= 0 {
		return domain.VanDeemterResult{}, domain.InvalidParameterError{Field: "id_mm", Value: column.IDmm, Reason: "column internal diameter must be > 0"}
	}
	props, err := gas.ResolveGas(conditions.CarrierGas)
	if err != nil {
		return domain.VanDeemterResult{}, err
	}
	dm := gas.Diffusivity(props, conditions.TemperatureC)
	if dm <= 0 {
		return domain.VanDeemterResult{}, domain.InvalidParameterError{Field: "diffusivity", Value: dm, Reason: "corrected diffusivity must be > 0"}
	}

	dc := column.IDmm / 10 // cm

	a := 0.0
	b := 2 * dm
	cs := dc * dc / (24 * dm)
	cm := dc * dc / (96 * dm)
	c := cs + cm

	uOpt := math.Sqrt(b / c)          // cm/s
	hMin := 2 * math.Sqrt(b*c)        // cm; A term is zero
	area := math.Pi * dc * dc / 4     // cm^2
	flow := uOpt * area * 60          // mL/min

	// Plate height at the fixed reference flow, for the relative gain.
	uRef := referenceFlowMLMin / 60 / area
	hRef := b/uRef + c*uRef
	gain := (hRef - hMin) / hRef * 100

	return domain.VanDeemterResult{
		OptimalVelocityCmS:      round(uOpt, 2),
		MinimumPlateHeightUm:    round(hMin*1e4, 2),
		ATerm:                   a,
		BTerm:                   round(b, 4),
		CTerm:                   round(c, 6),
		EfficiencyGainPct:       round(gain, 1),
		FlowRecommendationMLMin: round(flow, 3),
	}, nil
}

// round rounds x to the given number of decimal places for display parity.
func round(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}
