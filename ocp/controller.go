package ocp

import "sort"

// Controller maps a time (and, for feedback controllers, a state) to an
// input. Sampling outside [times[0], times[last]] clamps to the nearest
// endpoint.
type Controller interface {
	// Sample returns the control input at time t given the current state
	// x. Feedforward controllers ignore x.
	Sample(t float64, x *Vector) *Vector
}

// FeedforwardController is piecewise-linear in time over the recorded
// input trajectory.
type FeedforwardController struct {
	Times []float64
	UFF   []*Vector
}

// NewFeedforwardController builds a feedforward controller sampling u[i]
// exactly at times[i] (the controller-consistency testable property).
func NewFeedforwardController(times []float64, u []*Vector) *FeedforwardController {
	return &FeedforwardController{Times: times, UFF: u}
}

func (c *FeedforwardController) Sample(t float64, _ *Vector) *Vector {
	return interpolateVector(c.Times, c.UFF, t)
}

// FeedbackController is the affine controller u(t) = uff(t) + K(t)*x
// recovered from the Riccati feedback of the last QP of an SQP solve. If
// projection was enabled, K already is K_eff = dfdx + dfdu*K_reduced (see
// SPEC_FULL.md section 9).
type FeedbackController struct {
	Times []float64
	UFF   []*Vector
	K     []*Matrix
}

// NewFeedbackController builds a feedback controller. uff[i] must already
// equal u[i] - K[i]*x[i], per spec.md section 4.8.
func NewFeedbackController(times []float64, uff []*Vector, k []*Matrix) *FeedbackController {
	return &FeedbackController{Times: times, UFF: uff, K: k}
}

func (c *FeedbackController) Sample(t float64, x *Vector) *Vector {
	i := nearestIndex(c.Times, t)
	uff := interpolateVector(c.Times, c.UFF, t)
	if x == nil || c.K[i] == nil {
		return uff
	}
	feedback := NewVector(uff.Len())
	feedback.MulVec(c.K[i], x)
	out := AddVec(uff, feedback)
	return out
}

// nearestIndex returns the index of the grid sample nearest to t, clamped
// to the valid range; when t lies exactly midway, the later sample wins.
func nearestIndex(times []float64, t float64) int {
	i := sort.SearchFloat64s(times, t)
	if i >= len(times) {
		return len(times) - 1
	}
	if i == 0 {
		return 0
	}
	if times[i]-t > t-times[i-1] {
		return i - 1
	}
	return i
}
