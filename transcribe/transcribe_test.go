package transcribe_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"msqp/ocp"
	"msqp/transcribe"
)

// linearDynamics is dx/dt = A*x + B*u for constant A, B, which it also
// returns as its Jacobians.
type linearDynamics struct {
	A, B *ocp.Matrix
}

func (d *linearDynamics) Flow(t float64, x, u *ocp.Vector) *ocp.Vector {
	return ocp.AddVec(ocp.MulMatVec(d.A, x), ocp.MulMatVec(d.B, u))
}

func (d *linearDynamics) Jacobians(t float64, x, u *ocp.Vector) (*ocp.Matrix, *ocp.Matrix) {
	return d.A, d.B
}

func (d *linearDynamics) Clone() ocp.SystemDynamics {
	return &linearDynamics{A: d.A, B: d.B}
}

type quadraticCost struct {
	n, m int
}

func (c *quadraticCost) StageCost(t float64, x, u *ocp.Vector, desired ocp.DesiredTrajectories) float64 {
	return 0.5 * (mat.Dot(x, x) + mat.Dot(u, u))
}

func (c *quadraticCost) TerminalCost(t float64, x *ocp.Vector, desired ocp.DesiredTrajectories) float64 {
	return 0.5 * mat.Dot(x, x)
}

func (c *quadraticCost) QuadratizeStage(t float64, x, u *ocp.Vector, desired ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	h := ocp.Identity(c.n + c.m)
	g := ocp.StackVec(x, u)
	return h, g, c.StageCost(t, x, u, desired)
}

func (c *quadraticCost) QuadratizeTerminal(t float64, x *ocp.Vector, desired ocp.DesiredTrajectories) (*ocp.Matrix, *ocp.Vector, float64) {
	h := ocp.Identity(c.n)
	g := ocp.ScaleVec(1, x)
	return h, g, c.TerminalCost(t, x, desired)
}

func (c *quadraticCost) Clone() ocp.CostFunction {
	return &quadraticCost{n: c.n, m: c.m}
}

func TestTranscribeInterval_ResidualPositiveWhenInconsistent(t *testing.T) {
	dyn := &linearDynamics{A: ocp.Identity(2), B: ocp.Identity(2)}
	cost := &quadraticCost{n: 2, m: 2}
	tr := &transcribe.Transcriber{
		Dynamics: dyn,
		Cost:     cost,
		Opts:     transcribe.Options{Integrator: transcribe.Euler},
	}

	xi := ocp.NewVector(2)
	xi.SetVec(0, 1)
	ui := ocp.NewVector(2)

	_, _, _, pi, err := tr.TranscribeInterval(0, 0.0, 0.1, xi, xi, ui)
	require.NoError(t, err)
	require.Positive(t, pi.StateEqConstraintISE, "xi+dt*f(xi,ui) should not land back on xi for A=I,B=I,u=0,x!=0")
}

func TestTranscribeTerminal_NoConstraint(t *testing.T) {
	cost := &quadraticCost{n: 2, m: 2}
	tr := &transcribe.Transcriber{Cost: cost}

	x := ocp.NewVector(2)
	x.SetVec(0, 3)
	cb, pi, err := tr.TranscribeTerminal(1.0, x)
	require.NoError(t, err)
	require.InDelta(t, 4.5, cb.C, 1e-12)
	require.InDelta(t, 4.5, pi.TotalCost, 1e-12)
}
