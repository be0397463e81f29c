// Package transcribe implements the per-node linearization step of one
// SQP iteration: integrating the continuous dynamics over a shooting
// interval with its sensitivities, quadratizing the local cost, folding
// inequality constraints into a relaxed-barrier penalty, and optionally
// projecting the state-input equality constraint onto its null space so
// the downstream QP is solved over a reduced free input. Each worker in
// the pool owns one Transcriber built from its own clone of the
// dynamics/cost/constraint collaborators (see SPEC_FULL.md section 5).
package transcribe

import (
	"msqp/ocp"
)

// Options configures one Transcriber.
type Options struct {
	Integrator                           Integrator
	ProjectStateInputEqualityConstraints bool
	InequalityMu                         float64
	InequalityDelta                      float64
}

// barrierActive reports whether the relaxed-barrier penalty is
// configured (both parameters strictly positive, per spec.md section 6).
func (o Options) barrierActive() bool {
	return o.InequalityMu > 0 && o.InequalityDelta > 0
}

// Transcriber holds one worker's private collaborator clones and
// transcribes individual nodes. It carries no state across calls other
// than the collaborators themselves, so it is safe to call repeatedly
// from the same worker goroutine.
type Transcriber struct {
	Dynamics   ocp.SystemDynamics
	Cost       ocp.CostFunction
	Constraint ocp.Constraint // nil if no constraint evaluator was supplied
	Desired    ocp.DesiredTrajectories
	Opts       Options
}

// TranscribeInterval linearizes intermediate node i given its shooting
// interval [t, t+dt] and the neighboring shooting states xi, xip1 and
// input ui. It returns the discretized dynamics block, the (possibly
// projected) quadratic cost block, the equality ConstraintBlock to
// forward to the QP adapter, and the node's contribution to the
// PerformanceIndex.
func (tr *Transcriber) TranscribeInterval(node int, t, dt float64, xi, xip1, ui *ocp.Vector) (ocp.DynamicsBlock, ocp.CostBlock, ocp.ConstraintBlock, ocp.PerformanceIndex, error) {
	var pi ocp.PerformanceIndex

	xNext, a, b := stepWithSensitivity(tr.Opts.Integrator, tr.Dynamics, t, dt, xi, ui)
	residual := ocp.SubVec(xNext, xip1)
	pi.StateEqConstraintISE = dot(residual, residual)

	bias := ocp.SubVec(xNext, ocp.AddVec(ocp.MulMatVec(a, xi), ocp.MulMatVec(b, ui)))
	dyn := ocp.DynamicsBlock{A: a, B: b, Bias: bias}

	h, g, c := tr.Cost.QuadratizeStage(t, xi, ui, tr.Desired)
	pi.TotalCost = c

	nstate := xi.Len()
	ninput := ui.Len()

	var cb ocp.ConstraintBlock

	if tr.Constraint != nil {
		feq, cx, cu := tr.Constraint.StateInputEquality(t, xi, ui)
		if feq != nil && feq.Len() > 0 {
			pi.StateInputEqConstraintISE = dot(feq, feq)
		}

		gIneq, dgdx, dgdu := tr.Constraint.Inequality(t, xi, ui)
		if gIneq != nil && tr.Opts.barrierActive() {
			rows, _ := dgdx.Dims()
			for r := 0; r < rows; r++ {
				row := ocp.HStack(rowOf(dgdx, r, nstate), rowOf(dgdu, r, ninput))
				rowVec := matRowToVec(row)
				penalty, violSq := foldBarrier(h, g, gIneq.AtVec(r), rowVec, tr.Opts.InequalityMu, tr.Opts.InequalityDelta)
				pi.InequalityConstraintPenalty += penalty
				pi.InequalityConstraintISE += violSq
			}
		} else if gIneq != nil {
			for r := 0; r < gIneq.Len(); r++ {
				v := maxFloat(0, gIneq.AtVec(r))
				pi.InequalityConstraintISE += v * v
			}
		}

		if feq != nil && feq.Len() > 0 {
			if tr.Opts.ProjectStateInputEqualityConstraints {
				f, dfdx, dfdu, err := projectEquality(node, cu, cx, feq)
				if err != nil {
					return dyn, ocp.CostBlock{}, ocp.ConstraintBlock{}, pi, err
				}
				h, g, c = projectCostBlock(h, g, c, nstate, f, dfdx, dfdu)
				pi.TotalCost = c
				dyn = reduceDynamics(dyn, f, dfdx, dfdu)
				cb = ocp.ConstraintBlock{Projected: true, F: f, DfDx: dfdx, DfDu: dfdu}
			} else {
				cb = ocp.ConstraintBlock{Projected: false, F: feq, DfDx: cx, DfDu: cu}
			}
		}
	}

	return dyn, ocp.CostBlock{H: h, G: g, C: c}, cb, pi, nil
}

// TranscribeTerminal linearizes the terminal node N: terminal cost and
// terminal inequality only (no dynamics or input at the horizon end).
func (tr *Transcriber) TranscribeTerminal(t float64, x *ocp.Vector) (ocp.CostBlock, ocp.PerformanceIndex, error) {
	var pi ocp.PerformanceIndex

	h, g, c := tr.Cost.QuadratizeTerminal(t, x, tr.Desired)
	pi.TotalCost = c

	if tr.Constraint != nil {
		gIneq, dgdx := tr.Constraint.TerminalInequality(t, x)
		if gIneq != nil {
			if tr.Opts.barrierActive() {
				rows, _ := dgdx.Dims()
				for r := 0; r < rows; r++ {
					rowVec := matRowToVec(rowOf(dgdx, r, x.Len()))
					penalty, violSq := foldBarrier(h, g, gIneq.AtVec(r), rowVec, tr.Opts.InequalityMu, tr.Opts.InequalityDelta)
					pi.InequalityConstraintPenalty += penalty
					pi.InequalityConstraintISE += violSq
				}
			} else {
				for r := 0; r < gIneq.Len(); r++ {
					v := maxFloat(0, gIneq.AtVec(r))
					pi.InequalityConstraintISE += v * v
				}
			}
		}
	}

	return ocp.CostBlock{H: h, G: g, C: c}, pi, nil
}

func rowOf(m *ocp.Matrix, row, cols int) *ocp.Matrix {
	if m == nil {
		return ocp.NewMatrix(1, cols)
	}
	out := ocp.NewMatrix(1, cols)
	for j := 0; j < cols; j++ {
		out.Set(0, j, m.At(row, j))
	}
	return out
}

func matRowToVec(m *ocp.Matrix) *ocp.Vector {
	_, c := m.Dims()
	out := ocp.NewVector(c)
	for j := 0; j < c; j++ {
		out.SetVec(j, m.At(0, j))
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
