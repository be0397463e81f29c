package sqp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"msqp/ocp"
	"msqp/ocpconfig"
	"msqp/sqp"
)

// scalarIntegrator is dx/dt = u, the simplest LQR-friendly plant: its
// quadratic regulation problem has a textbook optimal feedback the SQP
// iteration should converge to in a single step (the problem is already
// an LQ problem, so the first linearization is exact).
type scalarIntegrator struct{}

func (scalarIntegrator) Flow(_ float64, _, u *ocp.Vector) *ocp.Vector {
	return ocp.ScaleVec(1, u)
}

func (scalarIntegrator) Jacobians(_ float64, x, u *ocp.Vector) (*ocp.Matrix, *ocp.Matrix) {
	return ocp.NewMatrix(1, 1), ocp.Identity(1)
}

func (scalarIntegrator) Clone() ocp.SystemDynamics { return scalarIntegrator{} }

// regulationCost is the stage cost x^2+u^2 and terminal cost x^2.
type regulationCost struct{}

func (regulationCost) StageCost(_ float64, x, u *ocp.Vector, _ ocp.DesiredTrajectories) float64 {
	return x.AtVec(0)*x.AtVec(0) + u.AtVec(0)*u.AtVec(0)
}

func (regulationCost) TerminalCost(_ float64, x *ocp.Vector, _ ocp.DesiredTrajectories) float64 {
	return x.AtVec(0) * x.AtVec(0)
}

func (regulationCost) QuadratizeStage(_ float64, x, u *ocp.Vector, _ ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	h := ocp.MatScale(2, ocp.Identity(2))
	g := ocp.NewVector(2)
	g.SetVec(0, 2*x.AtVec(0))
	g.SetVec(1, 2*u.AtVec(0))
	c := x.AtVec(0)*x.AtVec(0) + u.AtVec(0)*u.AtVec(0)
	return h, g, c
}

func (regulationCost) QuadratizeTerminal(_ float64, x *ocp.Vector, _ ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	h := ocp.MatScale(2, ocp.Identity(1))
	g := ocp.NewVector(1)
	g.SetVec(0, 2*x.AtVec(0))
	return h, g, x.AtVec(0) * x.AtVec(0)
}

func (regulationCost) Clone() ocp.CostFunction { return regulationCost{} }

func TestDriver_SolveConvergesOnUnconstrainedLQ(t *testing.T) {
	cfg := ocpconfig.Default()
	cfg.Dt = 1.0
	cfg.SqpIteration = 5
	cfg.NThreads = 1

	problem := sqp.Problem{
		Dynamics: scalarIntegrator{},
		Cost:     regulationCost{},
	}

	driver := sqp.NewDriver(cfg, problem)
	defer driver.Close()

	initState := ocp.NewVector(1)
	initState.SetVec(0, 1)

	sol, err := driver.Solve(0, initState, 2.0)
	require.NoError(t, err)
	require.Len(t, sol.X, 3)
	require.Len(t, sol.U, 3) // tail-padded to len(X)

	log, err := driver.GetIterationsLog()
	require.NoError(t, err)
	require.NotEmpty(t, log)
	require.LessOrEqual(t, len(log), cfg.SqpIteration)

	bench := driver.Benchmark()
	require.Greater(t, bench.Total.Nanoseconds(), int64(-1))
}

func TestDriver_GetIterationsLogEmptyBeforeSolve(t *testing.T) {
	cfg := ocpconfig.Default()
	cfg.NThreads = 1
	driver := sqp.NewDriver(cfg, sqp.Problem{Dynamics: scalarIntegrator{}, Cost: regulationCost{}})
	defer driver.Close()

	_, err := driver.GetIterationsLog()
	require.Error(t, err)
}
