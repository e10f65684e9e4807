package calc

import (
	"fmt"
	"math"

	"gclabcore/pkg/domain"
	"gclabcore/pkg/gas"
)

const (
	atmospherePSI = 14.696
	pascalPerPSI  = 6894.757

	// Columns with an internal diameter at or below 0.53 mm are rated as
	// capillary; anything wider is treated as wide-bore/packed hardware.
	capillaryMaxIDmm        = 0.53
	capillaryMaxPressurePSI = 100.0
	wideBoreMaxPressurePSI  = 60.0

	// Kozeny-Carman permeability constants for packed beds.
	packedBedPorosity       = 0.4
	kozenyCarmanCoefficient = 180.0
)

// PressureDropCalculate computes the pressure drop across a column and the
// inlet pressure required to sustain the method flow. Packed mode applies a
// Darcy-law permeability model; otherwise Hagen-Poiseuille with the
// James-Martin compressibility correction is used. A required pressure above
// the hardware maximum is a valid result reported with Safe=false, never an
// error.
func PressureDropCalculate(column domain.ColumnSpec, conditions domain.MethodConditions, packed bool) (domain.PressureDropResult, error) {
	if column.LengthM <= 0 {
		return domain.PressureDropResult{}, domain.InvalidParameterError{Field: "length_m", Value: column.LengthM, Reason: "column length must be > 0"}
	}
	if column.IDmm <= 0 {
		return domain.PressureDropResult{}, domain.InvalidParameterError{Field: "id_mm", Value: column.IDmm, Reason: "column internal diameter must be > 0"}
	}
	if conditions.FlowMLMin <= 0 {
		return domain.PressureDropResult{}, domain.InvalidParameterError{Field: "flow_ml_min", Value: conditions.FlowMLMin, Reason: "flow must be > 0"}
	}
	if packed && column.ParticleSizeUm <= 0 {
		return domain.PressureDropResult{}, domain.InvalidParameterError{Field: "particle_size_um", Value: column.ParticleSizeUm, Reason: "packed mode requires a particle size > 0"}
	}
	props, err := gas.ResolveGas(conditions.CarrierGas)
	if err != nil {
		return domain.PressureDropResult{}, err
	}

	muMicropoise := gas.ViscosityMicropoise(props, conditions.TemperatureC)
	muPaS := muMicropoise * 1e-7
	flowM3S := conditions.FlowMLMin * 1e-6 / 60
	radiusM := column.IDmm / 2 * 1e-3

	var dropPa float64
	if packed {
		dropPa = darcyDrop(muPaS, column.LengthM, flowM3S, radiusM, column.ParticleSizeUm)
	} else {
		dropPa = poiseuilleDrop(muPaS, column.LengthM, flowM3S, radiusM)
	}
	dropPSI := dropPa / pascalPerPSI

	outletPSI := conditions.OutletPressurePSI
	if outletPSI <= 0 {
		outletPSI = atmospherePSI
	}
	ratio := (outletPSI + dropPSI) / outletPSI
	j := jamesMartin(ratio)
	correctedDropPSI := dropPSI / j
	inletRequiredPSI := outletPSI + correctedDropPSI

	maxPSI := wideBoreMaxPressurePSI
	if column.IDmm <= capillaryMaxIDmm {
		maxPSI = capillaryMaxPressurePSI
	}

	result := domain.PressureDropResult{
		PressureDropPSI:          round(correctedDropPSI, 2),
		InletPressureRequiredPSI: round(inletRequiredPSI, 2),
		ViscosityMicropoise:      round(muMicropoise, 1),
		MaxRecommendedPSI:        maxPSI,
		Safe:                     inletRequiredPSI <= maxPSI,
	}
	if !result.Safe {
		result.Warning = fmt.Sprintf("required inlet pressure %.1f psi exceeds the %.0f psi maximum for this column", inletRequiredPSI, maxPSI)
	}
	return result, nil
}

// OptimalFlow recommends the volumetric flow that delivers the Van Deemter
// optimal average linear velocity once gas compressibility along the column
// is accounted for.
func OptimalFlow(column domain.ColumnSpec, conditions domain.MethodConditions) (domain.OptimalFlowResult, error) {
	vd, err := VanDeemterOptimize(column, conditions)
	if err != nil {
		return domain.OptimalFlowResult{}, err
	}

	outletPSI := conditions.OutletPressurePSI
	if outletPSI <= 0 {
		outletPSI = atmospherePSI
	}
	ratio := 1.0
	if conditions.InletPressurePSI > outletPSI {
		ratio = conditions.InletPressurePSI / outletPSI
	}
	j := jamesMartin(ratio)

	return domain.OptimalFlowResult{
		OptimalFlowMLMin:      round(vd.FlowRecommendationMLMin/j, 3),
		OptimalVelocityCmS:    vd.OptimalVelocityCmS,
		OutletVelocityCmS:     round(vd.OptimalVelocityCmS/j, 2),
		CompressibilityFactor: round(j, 4),
		PressureRatioInletOut: round(ratio, 3),
	}, nil
}

// poiseuilleDrop applies Hagen-Poiseuille for an open tube. All arguments in
// SI units; the result is in pascal.
func poiseuilleDrop(muPaS, lengthM, flowM3S, radiusM float64) float64 {
	return 8 * muPaS * lengthM * flowM3S / (math.Pi * math.Pow(radiusM, 4))
}

// darcyDrop applies Darcy's law with Kozeny-Carman permeability for a packed
// bed. Superficial velocity is taken over the full column cross-section.
func darcyDrop(muPaS, lengthM, flowM3S, radiusM, particleUm float64) float64 {
	particleM := particleUm * 1e-6
	eps := packedBedPorosity
	permeability := particleM * particleM * math.Pow(eps, 3) / (kozenyCarmanCoefficient * math.Pow(1-eps, 2))
	superficialV := flowM3S / (math.Pi * radiusM * radiusM)
	return muPaS * lengthM * superficialV / permeability
}

// jamesMartin returns the compressibility correction factor for the given
// inlet/outlet pressure ratio. The factor tends to 1 as the ratio tends to 1.
func jamesMartin(ratio float64) float64 {
	if ratio <= 1 {
		return 1
	}
	return 1.5 * (ratio*ratio - 1) / (ratio*ratio*ratio - 1)
}
