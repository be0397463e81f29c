package initializer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"msqp/initializer"
	"msqp/ocp"
)

func TestInitialize_ColdStart(t *testing.T) {
	grid := ocp.TimeGrid{0, 0.1, 0.2}
	initState := ocp.NewVector(1)
	initState.SetVec(0, 5)

	x, u := initializer.Initialize(grid, initState, nil, nil)
	require.Len(t, x, 3)
	require.Len(t, u, 2)
	for _, xi := range x {
		require.InDelta(t, 5, xi.AtVec(0), 1e-12)
	}
	for _, ui := range u {
		require.Equal(t, 0, ui.Len())
	}
}

func TestInitialize_WarmStartInterpolatesPreviousSolution(t *testing.T) {
	prevGrid := ocp.TimeGrid{0, 0.1, 0.2}
	prevX := make(ocp.Trajectory, 3)
	for i, v := range []float64{0, 1, 2} {
		prevX[i] = ocp.NewVector(1)
		prevX[i].SetVec(0, v)
	}
	prevU := make(ocp.Trajectory, 2)
	for i := range prevU {
		prevU[i] = ocp.NewVector(1)
	}

	grid := ocp.TimeGrid{0, 0.05, 0.1}
	initState := ocp.NewVector(1)
	initState.SetVec(0, 0)

	x, _ := initializer.Initialize(grid, initState, &initializer.Previous{TimeGrid: prevGrid, X: prevX, U: prevU}, nil)
	require.InDelta(t, 0, x[0].AtVec(0), 1e-12)
	require.InDelta(t, 0.5, x[1].AtVec(0), 1e-9) // halfway between prevX[0]=0 and prevX[1]=1
	require.InDelta(t, 1.0, x[2].AtVec(0), 1e-9)
}
