package transcribe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBarrier_SmoothAtTransition(t *testing.T) {
	mu, delta := 1.0, 0.1
	// Value, gradient, and curvature must agree at z == delta, the stitch
	// point between the log and quadratic regions.
	require.InDelta(t, barrierValue(delta, mu, delta), barrierValue(delta+1e-9, mu, delta), 1e-6)
	require.InDelta(t, barrierGrad(delta, mu, delta), barrierGrad(delta+1e-9, mu, delta), 1e-4)
	require.InDelta(t, barrierHess(delta, mu, delta), barrierHess(delta+1e-9, mu, delta), 1e-4)
}

func TestBarrier_PositiveCurvatureEverywhere(t *testing.T) {
	mu, delta := 2.0, 0.05
	for _, z := range []float64{-1, -0.1, 0, 0.01, 0.05, 0.1, 1, 10} {
		require.Positive(t, barrierHess(z, mu, delta), "z=%v", z)
	}
}

func TestBarrier_DefinedForInfeasibleIterates(t *testing.T) {
	mu, delta := 1.0, 0.1
	// z < 0 means g > 0, i.e. infeasible; the relaxed barrier must still
	// return finite value/gradient/curvature there (unlike a log barrier).
	v := barrierValue(-0.5, mu, delta)
	require.False(t, isInfOrNaN(v))
	require.False(t, isInfOrNaN(barrierGrad(-0.5, mu, delta)))
	require.False(t, isInfOrNaN(barrierHess(-0.5, mu, delta)))
}

func isInfOrNaN(x float64) bool {
	return x != x || x > 1e300 || x < -1e300
}
