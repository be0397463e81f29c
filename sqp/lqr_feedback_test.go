package sqp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"msqp/ocp"
	"msqp/ocpconfig"
	"msqp/sqp"
)

// redundantIntegrator has two inputs that both act on the same scalar
// state, dx/dt = u1+u2 -- an input-redundant plant whose second input is
// pinned to zero by fixedSecondInput below, leaving u1 as the only
// degree of freedom.
type redundantIntegrator struct{}

func (redundantIntegrator) Flow(_ float64, _, u *ocp.Vector) *ocp.Vector {
	out := ocp.NewVector(1)
	out.SetVec(0, u.AtVec(0)+u.AtVec(1))
	return out
}

func (redundantIntegrator) Jacobians(_ float64, _, _ *ocp.Vector) (*ocp.Matrix, *ocp.Matrix) {
	dfdu := ocp.NewMatrix(1, 2)
	dfdu.Set(0, 0, 1)
	dfdu.Set(0, 1, 1)
	return ocp.NewMatrix(1, 1), dfdu
}

func (redundantIntegrator) Clone() ocp.SystemDynamics { return redundantIntegrator{} }

// redundantCost penalizes both inputs equally, same state penalty as
// regulationCost.
type redundantCost struct{}

func (redundantCost) StageCost(_ float64, x, u *ocp.Vector, _ ocp.DesiredTrajectories) float64 {
	return x.AtVec(0)*x.AtVec(0) + u.AtVec(0)*u.AtVec(0) + u.AtVec(1)*u.AtVec(1)
}

func (redundantCost) TerminalCost(_ float64, x *ocp.Vector, _ ocp.DesiredTrajectories) float64 {
	return x.AtVec(0) * x.AtVec(0)
}

func (redundantCost) QuadratizeStage(_ float64, x, u *ocp.Vector, _ ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	h := ocp.MatScale(2, ocp.Identity(3))
	g := ocp.NewVector(3)
	g.SetVec(0, 2*x.AtVec(0))
	g.SetVec(1, 2*u.AtVec(0))
	g.SetVec(2, 2*u.AtVec(1))
	c := x.AtVec(0)*x.AtVec(0) + u.AtVec(0)*u.AtVec(0) + u.AtVec(1)*u.AtVec(1)
	return h, g, c
}

func (redundantCost) QuadratizeTerminal(_ float64, x *ocp.Vector, _ ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	h := ocp.MatScale(2, ocp.Identity(1))
	g := ocp.NewVector(1)
	g.SetVec(0, 2*x.AtVec(0))
	return h, g, x.AtVec(0) * x.AtVec(0)
}

func (redundantCost) Clone() ocp.CostFunction { return redundantCost{} }

// fixedSecondInput pins u2 == 0 at every node: cu = [0 1], cx = 0,
// feq = 0.
type fixedSecondInput struct{}

func (fixedSecondInput) StateInputEquality(_ float64, _, _ *ocp.Vector) (*ocp.Vector, *ocp.Matrix, *ocp.Matrix) {
	dfdx := ocp.NewMatrix(1, 1)
	dfdu := ocp.NewMatrix(1, 2)
	dfdu.Set(0, 1, 1)
	return ocp.ZeroVec(1), dfdx, dfdu
}

func (fixedSecondInput) Inequality(_ float64, x, u *ocp.Vector) (*ocp.Vector, *ocp.Matrix, *ocp.Matrix) {
	return nil, nil, nil
}

func (fixedSecondInput) TerminalInequality(_ float64, _ *ocp.Vector) (*ocp.Vector, *ocp.Matrix) {
	return nil, nil
}

func (fixedSecondInput) Clone() ocp.Constraint { return fixedSecondInput{} }

// TestBuildController_KEffReproducesProjectedFeedback exercises the
// K_eff = DfDx + DfDu*K_reduced combination identity of SPEC_FULL.md
// section 9: with u2 pinned to zero by projection, the emitted feedback
// controller's gain on u2 must be identically zero (DfDu's second row is
// zero) and the controller must reproduce the converged input exactly at
// the trajectory's own grid points.
func TestBuildController_KEffReproducesProjectedFeedback(t *testing.T) {
	cfg := ocpconfig.Default()
	cfg.Dt = 1.0
	cfg.SqpIteration = 5
	cfg.NThreads = 1
	cfg.ProjectStateInputEqualityConstraints = true
	cfg.ControllerFeedback = true

	problem := sqp.Problem{
		Dynamics:   redundantIntegrator{},
		Cost:       redundantCost{},
		Constraint: fixedSecondInput{},
	}

	driver := sqp.NewDriver(cfg, problem)
	defer driver.Close()

	initState := ocp.NewVector(1)
	initState.SetVec(0, 1)

	sol, err := driver.Solve(0, initState, 2.0)
	require.NoError(t, err)

	for i := 0; i < len(sol.U)-1; i++ {
		u := sol.Controller.Sample(sol.TimeGrid[i], sol.X[i])
		require.InDelta(t, sol.U[i].AtVec(0), u.AtVec(0), 1e-6)
		require.InDelta(t, 0, u.AtVec(1), 1e-9)
	}
}
