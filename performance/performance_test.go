package performance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"msqp/ocp"
	"msqp/performance"
	"msqp/workerpool"
)

type zeroDynamics struct{}

func (zeroDynamics) Flow(t float64, x, u *ocp.Vector) *ocp.Vector { return ocp.NewVector(x.Len()) }
func (zeroDynamics) Jacobians(t float64, x, u *ocp.Vector) (*ocp.Matrix, *ocp.Matrix) {
	return ocp.Identity(x.Len()), ocp.Identity(u.Len())
}
func (d zeroDynamics) Clone() ocp.SystemDynamics { return d }

type zeroCost struct{ n, m int }

func (c zeroCost) StageCost(t float64, x, u *ocp.Vector, d ocp.DesiredTrajectories) float64 { return 1 }
func (c zeroCost) TerminalCost(t float64, x *ocp.Vector, d ocp.DesiredTrajectories) float64 { return 2 }
func (c zeroCost) QuadratizeStage(t float64, x, u *ocp.Vector, d ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	return ocp.Identity(c.n + c.m), ocp.NewVector(c.n + c.m), 1
}
func (c zeroCost) QuadratizeTerminal(t float64, x *ocp.Vector, d ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	return ocp.Identity(c.n), ocp.NewVector(c.n), 2
}
func (c zeroCost) Clone() ocp.CostFunction { return c }

func TestEvaluate_SumsStageAndTerminalCost(t *testing.T) {
	const n = 2
	grid := ocp.TimeGrid{0, 0.1, 0.2}
	x := make(ocp.Trajectory, n+1)
	u := make(ocp.Trajectory, n)
	for i := range x {
		x[i] = ocp.NewVector(1)
	}
	for i := range u {
		u[i] = ocp.NewVector(1)
	}

	pool := workerpool.New(2)
	defer pool.Close()

	evaluators := make([]performance.Evaluator, pool.NThreads())
	for i := range evaluators {
		evaluators[i] = performance.Evaluator{Dynamics: zeroDynamics{}, Cost: zeroCost{n: 1, m: 1}, Integrator: performance.Euler}
	}

	initState := ocp.NewVector(1)
	pi := performance.Evaluate(pool, evaluators, grid, initState, x, u)

	// n=2 stage costs of 1 each, plus terminal cost of 2.
	require.InDelta(t, 4.0, pi.TotalCost, 1e-9)
	require.InDelta(t, 0.0, pi.StateEqConstraintISE, 1e-9)
}
