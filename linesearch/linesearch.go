// Package linesearch implements the filter line-search of spec.md
// section 4.6: merit-plus-violation acceptance against a baseline
// PerformanceIndex, step contraction, and the convergence test.
package linesearch

import (
	"msqp/ocp"
)

// Params are the line-search configuration items of spec.md section 6.
// Constructors in package ocpconfig validate the ordering constraints
// named there; this package trusts its caller.
type Params struct {
	AlphaDecay float64 // 0 < AlphaDecay < 1
	AlphaMin   float64 // 0 < AlphaMin <= 1
	GammaC     float64 // 0 < GammaC < 1
	GMax       float64 // g_min < g_max
	GMin       float64
	DeltaTol   float64
	CostTol    float64
}

// Evaluator computes the PerformanceIndex of a candidate step without
// derivatives (implemented by package performance in production).
type Evaluator func(alpha float64) ocp.PerformanceIndex

// Outcome is the result of one line-search call.
type Outcome struct {
	Alpha     float64
	Candidate ocp.PerformanceIndex
	Accepted  bool
	Converged bool
}

// Search starts at alpha=1 and contracts by AlphaDecay until the
// acceptance predicate of spec.md section 4.6 holds, alpha underflows
// AlphaMin (treated as converged, per spec), or the step-size
// termination test fires. dxNorm, duNorm are ||Δx||, ||Δu|| at alpha=1;
// the actual per-alpha step norms scale linearly with alpha.
func Search(baseline ocp.PerformanceIndex, dxNorm, duNorm float64, p Params, eval Evaluator) Outcome {
	alpha := 1.0
	vBaseline := baseline.ViolationNorm()

	for {
		candidate := eval(alpha)
		v := candidate.ViolationNorm()

		if accept(baseline, candidate, v, vBaseline, p) {
			stepSmall := alpha*duNorm < p.DeltaTol && alpha*dxNorm < p.DeltaTol
			meritConverged := absf(baseline.Merit-candidate.Merit) < p.CostTol && v < p.GMin
			return Outcome{Alpha: alpha, Candidate: candidate, Accepted: true, Converged: stepSmall || meritConverged}
		}

		if alpha*duNorm < p.DeltaTol && alpha*dxNorm < p.DeltaTol {
			return Outcome{Alpha: alpha, Candidate: candidate, Accepted: false, Converged: true}
		}

		alpha *= p.AlphaDecay
		if alpha < p.AlphaMin {
			return Outcome{Alpha: p.AlphaMin, Candidate: candidate, Accepted: false, Converged: true}
		}
	}
}

// accept implements the three-regime acceptance table of spec.md
// section 4.6.
func accept(baseline, candidate ocp.PerformanceIndex, v, vBaseline float64, p Params) bool {
	switch {
	case v > p.GMax:
		return false
	case v < p.GMin:
		return candidate.Merit < baseline.Merit
	default:
		return candidate.Merit < baseline.Merit-p.GammaC*vBaseline || v < (1-p.GammaC)*vBaseline
	}
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
