package qp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"msqp/ocp"
	"msqp/qp"
)

// A hand-computable one-step scalar LQR: A=1, B=1, stage cost (x^2+u^2)/2,
// terminal cost x^2/2 (H = I). The textbook one-step Riccati recursion gives
// Q_uu=2, Q_xu=1 => K = -0.5, matching the feedback this solver must
// produce.
func TestRiccatiSolver_OneStepScalarLQR(t *testing.T) {
	size := ocp.OcpSize{N: 1, NState: []int{1, 1}, NInput: []int{1}, NIneq: []int{0, 0}, NEq: []int{0, 0}}
	solver := qp.NewRiccatiSolver()
	solver.Resize(size)

	a := ocp.Identity(1)
	b := ocp.Identity(1)
	dyn := []ocp.DynamicsBlock{{A: a, B: b, Bias: ocp.ZeroVec(1)}}

	h0 := ocp.Identity(2)
	cost := []ocp.CostBlock{
		{H: h0, G: ocp.ZeroVec(2), C: 0},
		{H: ocp.Identity(1), G: ocp.ZeroVec(1), C: 0},
	}

	dx0 := ocp.NewVector(1)
	dx0.SetVec(0, 1)

	dx, du, status, err := solver.Solve(dx0, dyn, cost, nil)
	require.NoError(t, err)
	require.Equal(t, qp.Success, status)

	require.InDelta(t, -0.5, du[0].AtVec(0), 1e-9)
	require.InDelta(t, 0.5, dx[1].AtVec(0), 1e-9)

	k, err := solver.GetRiccatiFeedback()
	require.NoError(t, err)
	require.InDelta(t, -0.5, k[0].At(0, 0), 1e-9)
}

func TestRiccatiSolver_FeedbackUnavailableBeforeSolve(t *testing.T) {
	solver := qp.NewRiccatiSolver()
	_, err := solver.GetRiccatiFeedback()
	require.Error(t, err)
}
