package transcribe

import (
	"math"

	"msqp/ocp"
)

// barrierValue, barrierGrad, barrierHess evaluate the relaxed barrier
// function of SPEC_FULL.md section 4.3 / spec.md section 9 at margin
// z = -g (feasible when z > 0). The quadratic extension for z < delta
// keeps the barrier, its gradient, and its (positive) curvature defined
// for infeasible iterates, which is what lets the line-search restart
// from an infeasible candidate. mu, delta must both be > 0; callers gate
// on that before invoking these.
// barrierValue is the reported penalty value, floored at zero: the raw
// relaxed log barrier goes negative once z > 1 (comfortably feasible),
// which would make PerformanceIndex.InequalityConstraintPenalty violate
// its non-negative invariant. The floor only affects this reported
// scalar; the gradient/Hessian folded into the QP cost by foldBarrier
// come from barrierGrad/barrierHess below and are untouched by it.
func barrierValue(z, mu, delta float64) float64 {
	return math.Max(0, rawBarrierValue(z, mu, delta))
}

func rawBarrierValue(z, mu, delta float64) float64 {
	if z >= delta {
		return -mu * math.Log(z)
	}
	ratio := (z - 2*delta) / delta
	return mu/2*(ratio*ratio-1) - mu*math.Log(delta)
}

func barrierGrad(z, mu, delta float64) float64 {
	if z >= delta {
		return -mu / z
	}
	return mu * (z - 2*delta) / (delta * delta)
}

func barrierHess(z, mu, delta float64) float64 {
	if z >= delta {
		return mu / (z * z)
	}
	return mu / (delta * delta)
}

// foldBarrier adds the relaxed-barrier penalty of one inequality row
// g(x,u) <= 0, linearized as (dg [x;u] + gVal), into the stacked
// quadratic cost model (h, g, c) in place, and returns the penalty value
// and the squared constraint violation max(0, g)^2 contributed to
// inequalityConstraintISE.
func foldBarrier(h *ocp.Matrix, g *ocp.Vector, gVal float64, dg *ocp.Vector, mu, delta float64) (penalty, violationSq float64) {
	z := -gVal
	b := barrierValue(z, mu, delta)
	bp := barrierGrad(z, mu, delta)
	bpp := barrierHess(z, mu, delta)

	// dB/d[x;u] = -bp * dg ; d2B/d[x;u]2 ~= bpp * dg*dg^T (Gauss-Newton).
	scaledGrad := ocp.ScaleVec(-bp, dg)
	g.AddVec(g, scaledGrad)

	n := dg.Len()
	outer := ocp.NewMatrix(n, n)
	outer.Outer(bpp, dg, dg)
	h.Add(h, outer)

	viol := math.Max(0, gVal)
	return b, viol * viol
}
