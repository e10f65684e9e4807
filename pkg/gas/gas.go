// Package gas provides the carrier-gas physical model: reference property
// tables and temperature corrections consumed by the Van Deemter and
// pressure-drop calculators.
package gas

import (
	"math"

	"gclabcore/pkg/domain"
)

const (
	kelvinOffset    = 273.15
	refTemperatureK = 298.15
	// Diffusion coefficients scale with an empirical 1.75 power law
	// against the 298.15 K reference.
	diffusivityExponent = 1.75
	// Viscosity rises roughly linearly with temperature: +0.2% per degree
	// above the 25 C reference.
	viscosityRefC      = 25.0
	viscositySlopePerC = 0.002
	// Helium reference viscosity at 25 C in micropoise; the per-gas
	// ViscosityFactor scales this base value.
	heliumRefViscosityMicropoise = 196.0
)

// properties is the immutable carrier-gas reference table. It is never
// mutated after initialization; lookups copy the entry out.
var properties = map[domain.CarrierGas]domain.GasProperties{
	domain.GasHelium:   {Name: domain.GasHelium, DiffusivityRef: 0.7, ViscosityFactor: 1.0},
	domain.GasHydrogen: {Name: domain.GasHydrogen, DiffusivityRef: 0.9, ViscosityFactor: 0.45},
	domain.GasNitrogen: {Name: domain.GasNitrogen, DiffusivityRef: 0.16, ViscosityFactor: 0.9},
}

// ResolveGas looks up the property entry for a carrier gas name. Unknown
// names fail with domain.UnknownGasError.
func ResolveGas(name domain.CarrierGas) (domain.GasProperties, error) {
	props, ok := properties[name]
	if !ok {
		return domain.GasProperties{}, domain.UnknownGasError{Name: name}
	}
	return props, nil
}

// ResolveGasOrDefault looks up the property entry for a carrier gas name,
// falling back to helium's values when the name is unknown. This preserves
// the documented legacy behavior for hosts that opt into it; new callers
// should prefer ResolveGas and surface the error.
func ResolveGasOrDefault(name domain.CarrierGas) domain.GasProperties {
	if props, ok := properties[name]; ok {
		return props
	}
	return properties[domain.GasHelium]
}

// Diffusivity returns the binary diffusion coefficient in cm^2/s corrected
// to the supplied temperature.
func Diffusivity(g domain.GasProperties, temperatureC float64) float64 {
	tk := temperatureC + kelvinOffset
	return g.DiffusivityRef * math.Pow(tk/refTemperatureK, diffusivityExponent)
}

// Viscosity returns the temperature-corrected viscosity factor relative to
// helium at 25 C.
func Viscosity(g domain.GasProperties, temperatureC float64) float64 {
	return g.ViscosityFactor * (1 + viscositySlopePerC*(temperatureC-viscosityRefC))
}

// ViscosityMicropoise returns the absolute dynamic viscosity in micropoise
// at the supplied temperature.
func ViscosityMicropoise(g domain.GasProperties, temperatureC float64) float64 {
	return heliumRefViscosityMicropoise * Viscosity(g, temperatureC)
}
