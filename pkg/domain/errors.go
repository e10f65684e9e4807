package domain

import "fmt"

// InvalidParameterError reports a non-physical calculation input (zero or
// negative length, diameter, flow, and similar). It is fatal to the single
// calculation call and must not be retried.
type InvalidParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// InvalidBracketError reports a retention-index input whose bracketing
// alkanes are not consecutive or whose retention times are not strictly
// ordered, which would otherwise drive a log-ratio undefined.
type InvalidBracketError struct {
	Reason string
}

func (e InvalidBracketError) Error() string {
	return "invalid alkane bracket: " + e.Reason
}

// InvalidTargetError reports a malformed QC target (non-positive SD or
// NRequired below one).
type InvalidTargetError struct {
	TargetKey string
	Reason    string
}

func (e InvalidTargetError) Error() string {
	if e.TargetKey == "" {
		return "invalid qc target: " + e.Reason
	}
	return fmt.Sprintf("invalid qc target %s: %s", e.TargetKey, e.Reason)
}

// UnknownGasError reports a carrier gas name with no property-table entry.
// Callers that want the historical fall-back-to-helium behavior must opt in
// via gas.ResolveGasOrDefault.
type UnknownGasError struct {
	Name CarrierGas
}

func (e UnknownGasError) Error() string {
	return fmt.Sprintf("unknown carrier gas %q", string(e.Name))
}
