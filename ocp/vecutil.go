package ocp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// interpolateVector performs piecewise-linear interpolation of a vector
// series (times[i], values[i]) at t, clamping to the endpoints outside the
// series span. It returns nil for an empty series.
func interpolateVector(times []float64, values []*Vector, t float64) *Vector {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 || t <= times[0] {
		return cloneVec(values[0])
	}
	last := len(times) - 1
	if t >= times[last] {
		return cloneVec(values[last])
	}
	for i := 0; i < last; i++ {
		if t >= times[i] && t <= times[i+1] {
			span := times[i+1] - times[i]
			if span <= 0 {
				return cloneVec(values[i])
			}
			frac := (t - times[i]) / span
			return LerpVec(values[i], values[i+1], frac)
		}
	}
	return cloneVec(values[last])
}

func cloneVec(v *Vector) *Vector {
	if v == nil {
		return nil
	}
	out := mat.NewVecDense(v.Len(), nil)
	out.CloneFromVec(v)
	return out
}

// LerpVec returns (1-frac)*a + frac*b.
func LerpVec(a, b *Vector, frac float64) *Vector {
	n := a.Len()
	out := mat.NewVecDense(n, nil)
	out.ScaleVec(1-frac, a)
	tmp := mat.NewVecDense(n, nil)
	tmp.ScaleVec(frac, b)
	out.AddVec(out, tmp)
	return out
}

// ZeroVec returns a new zero vector of length n.
func ZeroVec(n int) *Vector {
	return mat.NewVecDense(n, nil)
}

// AddVec returns a+b as a new vector.
func AddVec(a, b *Vector) *Vector {
	out := mat.NewVecDense(a.Len(), nil)
	out.AddVec(a, b)
	return out
}

// SubVec returns a-b as a new vector.
func SubVec(a, b *Vector) *Vector {
	out := mat.NewVecDense(a.Len(), nil)
	out.SubVec(a, b)
	return out
}

// ScaleVec returns f*a as a new vector.
func ScaleVec(f float64, a *Vector) *Vector {
	out := mat.NewVecDense(a.Len(), nil)
	out.ScaleVec(f, a)
	return out
}

// NormVec returns the Euclidean norm of a.
func NormVec(a *Vector) float64 {
	if a == nil {
		return 0
	}
	return mat.Norm(a, 2)
}

// TrajectoryNorm returns the Euclidean norm of the concatenated sequence,
// i.e. sqrt(sum_i ||v_i||^2), used by the filter line-search step-size test.
func TrajectoryNorm(t Trajectory) float64 {
	sum := 0.0
	for _, v := range t {
		n := NormVec(v)
		sum += n * n
	}
	return math.Sqrt(sum)
}
