package calc

import (
	"math"

	"gclabcore/pkg/domain"
)

const (
	// Lee index linear temperature correction per degree away from 100 C.
	leeCorrectionPerC = 0.001
	leeReferenceC     = 100.0
	// Programmed-temperature contribution per C/min of ramp rate.
	ptiRampFactor = 5.0
	// Reliability scaling: 50 points per minute of separation between the
	// unknown and its nearest bracket, capped at 100.
	reliabilityScalePerMin = 50.0
)

// compoundClassRange maps an index interval to a coarse identification hint.
// The buckets are deliberately crude; they are a triage aid, not chemistry.
type compoundClassRange struct {
	min, max float64
	label    string
}

var compoundClassRanges = []compoundClassRange{
	{400, 500, "C4 Alkane"},
	{500, 600, "C5 Alkane"},
	{600, 700, "C6 Alkane"},
	{700, 800, "C7 Alkane"},
	{800, 900, "C8 Alkane"},
	{900, 1000, "C9 Alkane"},
	{1000, 1100, "C10 Alkane"},
	{1100, 1200, "C11 Alkane"},
	{1200, 1300, "C12 Alkane"},
}

// RetentionIndexCalculate computes the Kovats, Lee, and programmed-
// temperature retention indices for an unknown peak bracketed by two
// consecutive n-alkanes. The bracket is validated before any logarithm is
// taken so no NaN can escape.
func RetentionIndexCalculate(in domain.RetentionIndexInput) (domain.RetentionIndexResult, error) {
	if in.NPlus1Carbons != in.NMinus1Carbons+1 {
		return domain.RetentionIndexResult{}, domain.InvalidBracketError{Reason: "bracketing alkanes must have consecutive carbon numbers"}
	}
	if in.NMinus1RT <= 0 {
		return domain.RetentionIndexResult{}, domain.InvalidBracketError{Reason: "lower alkane retention time must be > 0"}
	}
	if in.NMinus1RT >= in.NPlus1RT {
		return domain.RetentionIndexResult{}, domain.InvalidBracketError{Reason: "lower alkane must elute before upper alkane"}
	}
	if in.UnknownRT <= in.NMinus1RT || in.UnknownRT >= in.NPlus1RT {
		return domain.RetentionIndexResult{}, domain.InvalidBracketError{Reason: "unknown retention time must fall strictly inside the bracket"}
	}

	n := float64(in.NMinus1Carbons)
	kovats := 100*n + 100*(math.Log(in.UnknownRT)-math.Log(in.NMinus1RT))/(math.Log(in.NPlus1RT)-math.Log(in.NMinus1RT))

	lee := kovats * (1 + leeCorrectionPerC*(in.TemperatureC-leeReferenceC))

	pti := kovats
	if in.RampRateCMin > 0 {
		pti += in.RampRateCMin * ptiRampFactor
	}

	separation := math.Min(in.UnknownRT-in.NMinus1RT, in.NPlus1RT-in.UnknownRT)
	reliability := math.Min(100, reliabilityScalePerMin*separation)

	return domain.RetentionIndexResult{
		KovatsIndex:      round(kovats, 1),
		LeeIndex:         round(lee, 1),
		PTIIndex:         round(pti, 1),
		ReliabilityScore: round(reliability, 1),
		CompoundClass:    compoundClass(kovats),
	}, nil
}

func compoundClass(index float64) string {
	if index < compoundClassRanges[0].min {
		return "Light hydrocarbon (C1-C3)"
	}
	for _, r := range compoundClassRanges {
		if index >= r.min && index < r.max {
			return r.label
		}
	}
	return "Heavy compound (C13+)"
}
