// Package performance re-evaluates cost and constraint integrals at a
// candidate trajectory without producing derivatives, for use by the
// filter line-search (spec.md section 4.9). It runs under the same
// worker-pool fan-out as the transcriber but uses the nominal
// (non-sensitivity) integrator for the dynamics residual.
package performance

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"msqp/ocp"
	"msqp/workerpool"
)

// Evaluator is one worker slot's private collaborators, mirroring
// assemble.Worker but without a Constraint clone's Jacobian methods
// being exercised (only values are needed).
type Evaluator struct {
	Dynamics   ocp.SystemDynamics
	Cost       ocp.CostFunction
	Constraint ocp.Constraint // nil if no constraint evaluator was supplied
	Desired    ocp.DesiredTrajectories
	Integrator Integrator

	InequalityMu    float64
	InequalityDelta float64
}

// Integrator mirrors transcribe.Integrator; duplicated here (rather
// than imported) since this package only needs the state-only stepper,
// not the sensitivity-paired one, and must not import transcribe to
// keep the dependency direction performance -> (nothing domain-specific)
// consistent with it being callable from both sqp and linesearch.
type Integrator int

const (
	Euler Integrator = iota
	RK2
	RK4
)

// Evaluate computes the PerformanceIndex of the candidate (x, u) over
// grid, against initState, without any QP-facing derivatives.
func Evaluate(pool *workerpool.Pool, evaluators []Evaluator, grid ocp.TimeGrid, initState *ocp.Vector, x, u ocp.Trajectory) ocp.PerformanceIndex {
	n := len(grid) - 1
	perWorker := make([]ocp.PerformanceIndex, len(evaluators))

	pool.Run(func(workerID, node int) {
		e := evaluators[workerID]
		if node == n {
			_, _, c := e.Cost.QuadratizeTerminal(grid[node], x[node], e.Desired)
			pi := ocp.PerformanceIndex{TotalCost: c}
			if e.Constraint != nil {
				gIneq, _ := e.Constraint.TerminalInequality(grid[node], x[node])
				addIneqNoDerivative(&pi, gIneq, e.InequalityMu, e.InequalityDelta)
			}
			perWorker[workerID].Add(pi)
			return
		}

		t := grid[node]
		dt := grid[node+1] - t
		xNext := step(e.Integrator, e.Dynamics, t, dt, x[node], u[node])
		residual := ocp.SubVec(xNext, x[node+1])

		_, _, c := e.Cost.QuadratizeStage(t, x[node], u[node], e.Desired)
		pi := ocp.PerformanceIndex{
			TotalCost:            c,
			StateEqConstraintISE: mat.Dot(residual, residual),
		}

		if e.Constraint != nil {
			feq, _, _ := e.Constraint.StateInputEquality(t, x[node], u[node])
			if feq != nil && feq.Len() > 0 {
				pi.StateInputEqConstraintISE = mat.Dot(feq, feq)
			}
			gIneq, _, _ := e.Constraint.Inequality(t, x[node], u[node])
			addIneqNoDerivative(&pi, gIneq, e.InequalityMu, e.InequalityDelta)
		}

		perWorker[workerID].Add(pi)
	}, n)

	var agg ocp.PerformanceIndex
	for i := range perWorker {
		agg.Add(perWorker[i])
	}
	residual := ocp.SubVec(initState, x[0])
	agg.StateEqConstraintISE += mat.Dot(residual, residual)
	agg.FinalizeMerit()
	return agg
}

func addIneqNoDerivative(pi *ocp.PerformanceIndex, g *ocp.Vector, mu, delta float64) {
	if g == nil {
		return
	}
	barrierActive := mu > 0 && delta > 0
	for r := 0; r < g.Len(); r++ {
		v := g.AtVec(r)
		viol := v
		if viol < 0 {
			viol = 0
		}
		pi.InequalityConstraintISE += viol * viol
		if barrierActive {
			pi.InequalityConstraintPenalty += barrierValue(-v, mu, delta)
		}
	}
}

// barrierValue mirrors transcribe's floored relaxed barrier: the raw
// log barrier goes negative past z=1, which would violate
// PerformanceIndex.InequalityConstraintPenalty's non-negative invariant.
func barrierValue(z, mu, delta float64) float64 {
	v := rawBarrierValue(z, mu, delta)
	if v < 0 {
		return 0
	}
	return v
}

func rawBarrierValue(z, mu, delta float64) float64 {
	if z >= delta {
		return -mu * math.Log(z)
	}
	ratio := (z - 2*delta) / delta
	return mu/2*(ratio*ratio-1) - mu*math.Log(delta)
}

func step(integ Integrator, dyn ocp.SystemDynamics, t, dt float64, x, u *ocp.Vector) *ocp.Vector {
	switch integ {
	case RK2:
		k1 := dyn.Flow(t, x, u)
		xm := ocp.AddVec(x, ocp.ScaleVec(dt/2, k1))
		k2 := dyn.Flow(t+dt/2, xm, u)
		return ocp.AddVec(x, ocp.ScaleVec(dt, k2))
	case RK4:
		k1 := dyn.Flow(t, x, u)
		x2 := ocp.AddVec(x, ocp.ScaleVec(dt/2, k1))
		k2 := dyn.Flow(t+dt/2, x2, u)
		x3 := ocp.AddVec(x, ocp.ScaleVec(dt/2, k2))
		k3 := dyn.Flow(t+dt/2, x3, u)
		x4 := ocp.AddVec(x, ocp.ScaleVec(dt, k3))
		k4 := dyn.Flow(t+dt, x4, u)
		sum := ocp.AddVec(k1, ocp.ScaleVec(2, k2))
		sum = ocp.AddVec(sum, ocp.ScaleVec(2, k3))
		sum = ocp.AddVec(sum, k4)
		return ocp.AddVec(x, ocp.ScaleVec(dt/6, sum))
	default:
		k1 := dyn.Flow(t, x, u)
		return ocp.AddVec(x, ocp.ScaleVec(dt, k1))
	}
}
