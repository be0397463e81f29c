package sqp

import (
	"msqp/linesearch"
	"msqp/ocp"
	"msqp/ocpconfig"
	"msqp/performance"
	"msqp/transcribe"
)

// integratorOf maps the config's YAML-facing integrator name onto
// transcribe's enum.
func integratorOf(name ocpconfig.IntegratorName) transcribe.Integrator {
	switch name {
	case ocpconfig.Euler:
		return transcribe.Euler
	case ocpconfig.RK2:
		return transcribe.RK2
	default:
		return transcribe.RK4
	}
}

// performanceIntegratorOf is integratorOf's analogue for package
// performance's independently declared Integrator enum.
func performanceIntegratorOf(name ocpconfig.IntegratorName) performance.Integrator {
	switch name {
	case ocpconfig.Euler:
		return performance.Euler
	case ocpconfig.RK2:
		return performance.RK2
	default:
		return performance.RK4
	}
}

// lineSearchParams carries the ordering-validated line-search fields out
// of Config into linesearch.Params.
func lineSearchParams(cfg ocpconfig.Config) linesearch.Params {
	return linesearch.Params{
		AlphaDecay: cfg.AlphaDecay,
		AlphaMin:   cfg.AlphaMin,
		GammaC:     cfg.GammaC,
		GMax:       cfg.GMax,
		GMin:       cfg.GMin,
		DeltaTol:   cfg.DeltaTol,
		CostTol:    cfg.CostTol,
	}
}

// stepTrajectories returns x+alpha*dx, u+alpha*du elementwise, per
// spec.md section 4.6's trial-point definition.
func stepTrajectories(x, u, dx, du ocp.Trajectory, alpha float64) (ocp.Trajectory, ocp.Trajectory) {
	candX := make(ocp.Trajectory, len(x))
	for i, xi := range x {
		if i < len(dx) && dx[i] != nil {
			candX[i] = ocp.AddVec(xi, ocp.ScaleVec(alpha, dx[i]))
		} else {
			candX[i] = xi
		}
	}
	candU := make(ocp.Trajectory, len(u))
	for i, ui := range u {
		if i < len(du) && du[i] != nil {
			candU[i] = ocp.AddVec(ui, ocp.ScaleVec(alpha, du[i]))
		} else {
			candU[i] = ui
		}
	}
	return candX, candU
}

// reverseProjection expands a reduced-space step duTilde back into the
// real input step, per spec.md section 4.8 step 3c:
// Δu_real = DfDu*Δũ + DfDx*Δx + F (projected), or duTilde unchanged
// (raw/unconstrained nodes, where the QP solved directly in input space).
func reverseProjection(blocks []ocp.ConstraintBlock, node int, dx, duTilde *ocp.Vector) *ocp.Vector {
	if node >= len(blocks) {
		return duTilde
	}
	b := blocks[node]
	if !b.Projected || b.DfDu == nil {
		return duTilde
	}
	r, _ := b.DfDu.Dims()
	du := ocp.NewVector(r)
	du.MulVec(b.DfDu, duTilde)
	if b.DfDx != nil && dx != nil {
		dxTerm := ocp.NewVector(r)
		dxTerm.MulVec(b.DfDx, dx)
		du = ocp.AddVec(du, dxTerm)
	}
	if b.F != nil {
		// F is re-added in full on every iteration, not accumulated: it
		// is the constant term of the affine reconstruction evaluated at
		// the current node, so each step's Δu carries it exactly once.
		du = ocp.AddVec(du, b.F)
	}
	return du
}

// padInputTail duplicates the last input sample so the returned
// trajectory has length len(u)+1, matching the N+1 state samples, per
// spec.md section 4.8's reported-solution shape.
func padInputTail(u ocp.Trajectory) ocp.Trajectory {
	if len(u) == 0 {
		return u
	}
	out := make(ocp.Trajectory, len(u)+1)
	copy(out, u)
	out[len(u)] = u[len(u)-1]
	return out
}
