// Package domain defines the core value types, QC rule evaluation
// primitives, and persistence interfaces used by gclabcore.
package domain

import (
	"strings"
	"time"
)

// CarrierGas identifies a supported carrier gas.
type CarrierGas string

// Supported carrier gases. Every gas name used by a method must resolve to a
// property-table entry in pkg/gas.
const (
	GasHelium   CarrierGas = "helium"
	GasHydrogen CarrierGas = "hydrogen"
	GasNitrogen CarrierGas = "nitrogen"
)

// GasProperties is an immutable reference entry for a carrier gas.
type GasProperties struct {
	Name CarrierGas `json:"name"`
	// DiffusivityRef is the binary diffusion coefficient in cm^2/s at the
	// 298.15 K reference temperature.
	DiffusivityRef float64 `json:"diffusivity_ref"`
	// ViscosityFactor is the viscosity of the gas relative to helium at 25 C.
	ViscosityFactor float64 `json:"viscosity_factor"`
}

// ColumnSpec describes the physical geometry of a GC column.
type ColumnSpec struct {
	LengthM         float64 `json:"length_m"`
	IDmm            float64 `json:"id_mm"`
	FilmThicknessUm float64 `json:"film_thickness_um,omitempty"`
	// ParticleSizeUm is set for packed columns only; zero means open-tubular.
	ParticleSizeUm float64 `json:"particle_size_um,omitempty"`
}

// Packed reports whether the column is a packed column.
func (c ColumnSpec) Packed() bool { return c.ParticleSizeUm > 0 }

// MethodConditions captures the operating point of a GC method.
type MethodConditions struct {
	TemperatureC float64    `json:"temperature_c"`
	FlowMLMin    float64    `json:"flow_ml_min"`
	CarrierGas   CarrierGas `json:"carrier_gas"`
	// Inlet/outlet pressures are absolute psi; zero means unspecified and
	// calculators fall back to atmospheric outlet.
	InletPressurePSI  float64 `json:"inlet_pressure_psi,omitempty"`
	OutletPressurePSI float64 `json:"outlet_pressure_psi,omitempty"`
}

// VanDeemterResult reports the optimal operating point of a column.
// Created fresh per calculation call; no persisted identity.
type VanDeemterResult struct {
	OptimalVelocityCmS      float64 `json:"optimal_velocity_cm_s"`
	MinimumPlateHeightUm    float64 `json:"minimum_plate_height_um"`
	ATerm                   float64 `json:"a_term"`
	BTerm                   float64 `json:"b_term"`
	CTerm                   float64 `json:"c_term"`
	EfficiencyGainPct       float64 `json:"efficiency_gain_pct"`
	FlowRecommendationMLMin float64 `json:"flow_recommendation_ml_min"`
}

// PressureDropResult reports the pressure required to drive a method's flow
// through a column. Safe is false when the required inlet pressure exceeds
// the recommended maximum; that is a valid result, not an error.
type PressureDropResult struct {
	PressureDropPSI          float64 `json:"pressure_drop_psi"`
	InletPressureRequiredPSI float64 `json:"inlet_pressure_required_psi"`
	ViscosityMicropoise      float64 `json:"viscosity_micropoise"`
	MaxRecommendedPSI        float64 `json:"max_recommended_psi"`
	Safe                     bool    `json:"safe"`
	Warning                  string  `json:"warning,omitempty"`
}

// OptimalFlowResult reports the Poiseuille-derived optimal volumetric flow
// with the James-Martin compressibility correction applied.
type OptimalFlowResult struct {
	OptimalFlowMLMin      float64 `json:"optimal_flow_ml_min"`
	OptimalVelocityCmS    float64 `json:"optimal_velocity_cm_s"`
	OutletVelocityCmS     float64 `json:"outlet_velocity_cm_s"`
	CompressibilityFactor float64 `json:"compressibility_factor"`
	PressureRatioInletOut float64 `json:"pressure_ratio_inlet_outlet"`
}

// RetentionIndexInput holds a bracketing n-alkane pair and the unknown peak.
// The bracketing alkanes must be consecutive (NPlus1Carbons = NMinus1Carbons+1)
// and retention times strictly ordered NMinus1RT < UnknownRT < NPlus1RT.
type RetentionIndexInput struct {
	UnknownRT      float64 `json:"unknown_rt"`
	NMinus1RT      float64 `json:"n_minus_1_rt"`
	NPlus1RT       float64 `json:"n_plus_1_rt"`
	NMinus1Carbons int     `json:"n_minus_1_carbons"`
	NPlus1Carbons  int     `json:"n_plus_1_carbons"`
	TemperatureC   float64 `json:"temperature_c"`
	RampRateCMin   float64 `json:"ramp_rate_c_min"`
}

// RetentionIndexResult reports the computed retention indices and a coarse
// identification hint.
type RetentionIndexResult struct {
	KovatsIndex      float64 `json:"kovats_index"`
	LeeIndex         float64 `json:"lee_index"`
	PTIIndex         float64 `json:"pti_index"`
	ReliabilityScore float64 `json:"reliability_score"`
	CompoundClass    string  `json:"compound_class"`
}

// QCStatus is the aggregate outcome of a QC evaluation.
type QCStatus string

// QC evaluation statuses in escalating severity.
const (
	QCStatusPass QCStatus = "pass"
	QCStatusWarn QCStatus = "warn"
	QCStatusFail QCStatus = "fail"
)

// RuleName identifies a Westgard control rule.
type RuleName string

// The six Westgard rules evaluated by the QC engine.
const (
	Rule12s RuleName = "1-2s"
	Rule13s RuleName = "1-3s"
	Rule22s RuleName = "2-2s"
	RuleR4s RuleName = "R-4s"
	Rule41s RuleName = "4-1s"
	Rule10x RuleName = "10-x"
)

// QCTarget is the per-analyte control target configured by a lab
// administrator. Identity is (MethodID, InstrumentID, Analyte); the rule
// engine treats targets as read-only.
type QCTarget struct {
	MethodID     string  `json:"method_id"`
	InstrumentID string  `json:"instrument_id,omitempty"`
	Analyte      string  `json:"analyte"`
	Mean         float64 `json:"mean"`
	SD           float64 `json:"sd"`
	Unit         string  `json:"unit"`
	NRequired    int     `json:"n_required"`
}

// Key returns the composite identity used as the storage bucket key.
func (t QCTarget) Key() string {
	return strings.Join([]string{t.MethodID, t.InstrumentID, t.Analyte}, "|")
}

// QCObservation is a single control measurement. Observations are appended
// chronologically and immutable once recorded.
type QCObservation struct {
	Timestamp time.Time `json:"timestamp"`
	Analyte   string    `json:"analyte"`
	Value     float64   `json:"value"`
	RunID     string    `json:"run_id"`
}

// QCEvaluation is the engine output for one observation evaluated against
// its historical series. RuleHits records every rule that fired, not just
// the most severe. DegradedRules records multi-point rules whose pattern
// matched while history was too short for strict application; they do not
// count as fired.
type QCEvaluation struct {
	Status        QCStatus   `json:"status"`
	ZScore        float64    `json:"z_score"`
	RuleHits      []RuleName `json:"rule_hits,omitempty"`
	DegradedRules []RuleName `json:"degraded_rules,omitempty"`
}

// HitsRule reports whether the named rule fired.
func (e QCEvaluation) HitsRule(name RuleName) bool {
	for _, hit := range e.RuleHits {
		if hit == name {
			return true
		}
	}
	return false
}

// QCEvaluationRecord is a persisted evaluation kept for the audit trail.
type QCEvaluationRecord struct {
	ID            string       `json:"id"`
	TargetKey     string       `json:"target_key"`
	RunID         string       `json:"run_id"`
	ObservedValue float64      `json:"observed_value"`
	Evaluation    QCEvaluation `json:"evaluation"`
	EvaluatedAt   time.Time    `json:"evaluated_at"`
}

// QCPolicy is process-wide configuration consumed by the QC engine.
type QCPolicy struct {
	// StopOnFail instructs the host to halt sequence execution on FAIL.
	StopOnFail bool `json:"stop_on_fail" yaml:"stop_on_fail"`
	// WarnOn12s escalates a lone 1-2s hit to WARN instead of PASS.
	WarnOn12s bool `json:"warn_on_1_2s" yaml:"warn_on_1_2s"`
	// RequireNBeforeStrict is the minimum series length (including the new
	// point) before multi-point rules apply strictly. Zero or negative
	// falls back to the target's NRequired.
	RequireNBeforeStrict int `json:"require_n_before_strict" yaml:"require_n_before_strict"`
}

// DefaultQCPolicy returns the policy used when a host supplies none.
func DefaultQCPolicy() QCPolicy {
	return QCPolicy{StopOnFail: true, WarnOn12s: true}
}
