// Package qc implements the Westgard control-rule engine. Evaluation is a
// pure function over a target, an ordered observation history, and one new
// observation: nothing is mutated and identical inputs always produce
// identical evaluations. The host owns persistence of the history and is
// responsible for honoring the stop-on-fail policy.
package qc

import (
	"gclabcore/pkg/domain"
)

// Rule evaluates a single Westgard pattern over an ordered z-score series.
type Rule interface {
	Name() domain.RuleName
	// Window is the number of most recent points the rule examines.
	Window() int
	// Critical rules escalate the evaluation to FAIL when they fire.
	Critical() bool
	// Fires reports whether the pattern matches. The series is ordered
	// oldest to newest and holds at least Window entries.
	Fires(zs []float64) bool
}

// Engine evaluates a fixed set of control rules.
type Engine struct {
	rules []Rule
}

// NewEngine constructs an engine with the six standard Westgard rules.
func NewEngine() *Engine {
	return &Engine{rules: []Rule{
		rule12s{},
		rule13s{},
		rule22s{},
		ruleR4s{},
		rule41s{},
		rule10x{},
	}}
}

// Register appends an additional rule to the engine.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate scores a new observation against the historical series for its
// target. The history must be ordered oldest first; the new observation is
// treated as the most recent point. Multi-point rules whose pattern matches
// while the series is shorter than the strict-application threshold are
// reported as degraded rather than fired, capping the outcome at WARN.
func Evaluate(target domain.QCTarget, history []domain.QCObservation, obs domain.QCObservation, policy domain.QCPolicy) (domain.QCEvaluation, error) {
	return NewEngine().Evaluate(target, history, obs, policy)
}

// Evaluate implements the package-level contract using the engine's rule set.
func (e *Engine) Evaluate(target domain.QCTarget, history []domain.QCObservation, obs domain.QCObservation, policy domain.QCPolicy) (domain.QCEvaluation, error) {
	if target.SD <= 0 {
		return domain.QCEvaluation{}, domain.InvalidTargetError{TargetKey: target.Key(), Reason: "sd must be > 0"}
	}
	if target.NRequired < 1 {
		return domain.QCEvaluation{}, domain.InvalidTargetError{TargetKey: target.Key(), Reason: "n_required must be >= 1"}
	}

	zs := make([]float64, 0, len(history)+1)
	for _, h := range history {
		zs = append(zs, (h.Value-target.Mean)/target.SD)
	}
	z := (obs.Value - target.Mean) / target.SD
	zs = append(zs, z)

	strictN := policy.RequireNBeforeStrict
	if strictN <= 0 {
		strictN = target.NRequired
	}
	degraded := len(zs) < strictN

	eval := domain.QCEvaluation{ZScore: z}
	criticalFired := false
	warnFired := false
	for _, rule := range e.rules {
		if len(zs) < rule.Window() {
			continue
		}
		if !rule.Fires(zs) {
			continue
		}
		if rule.Window() > 1 && degraded {
			eval.DegradedRules = append(eval.DegradedRules, rule.Name())
			continue
		}
		eval.RuleHits = append(eval.RuleHits, rule.Name())
		if rule.Critical() {
			criticalFired = true
		} else {
			warnFired = true
		}
	}

	switch {
	case criticalFired:
		eval.Status = domain.QCStatusFail
	case len(eval.DegradedRules) > 0, warnFired && policy.WarnOn12s:
		eval.Status = domain.QCStatusWarn
	default:
		eval.Status = domain.QCStatusPass
	}
	return eval, nil
}

// last returns the n most recent entries of the series.
func last(zs []float64, n int) []float64 {
	return zs[len(zs)-n:]
}
