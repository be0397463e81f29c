// Package ocp defines the shared data model for the multiple-shooting SQP
// engine: trajectories, per-node linearization blocks, sizes, performance
// indices, and the collaborator contracts (dynamics, cost, constraints)
// every other package builds on.
package ocp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vector is a dense column vector.
type Vector = mat.VecDense

// Matrix is a dense matrix.
type Matrix = mat.Dense

// NewVector allocates a zero vector of length n.
func NewVector(n int) *Vector {
	return mat.NewVecDense(n, nil)
}

// NewMatrix allocates a zero r-by-c matrix.
func NewMatrix(r, c int) *Matrix {
	return mat.NewDense(r, c, nil)
}

// TimeGrid is an ordered sequence of time samples. Event times appear twice,
// separated by the builder's tolerance epsilon; see package timegrid.
type TimeGrid []float64

// Trajectory is a sequence of vectors aligned with a TimeGrid.
type Trajectory []*Vector

// Clone returns a deep copy of the trajectory.
func (t Trajectory) Clone() Trajectory {
	out := make(Trajectory, len(t))
	for i, v := range t {
		if v == nil {
			continue
		}
		c := mat.NewVecDense(v.Len(), nil)
		c.CloneFromVec(v)
		out[i] = c
	}
	return out
}

// DynamicsBlock is the discretized affine model of one shooting interval:
// x_{i+1} ~= A*x_i + B*u_i + b.
type DynamicsBlock struct {
	A    *Matrix
	B    *Matrix
	Bias *Vector
}

// CostBlock is the local quadratic cost 1/2 [x;u]^T H [x;u] + g^T [x;u] + c
// of one node. At the terminal node the input partition is absent and H/g
// are sized n_state x n_state / n_state.
type CostBlock struct {
	H *Matrix
	G *Vector
	C float64
}

// ConstraintBlock is either a projected reconstruction of u from a reduced
// free input (Projected == true), or a raw linear equality block passed
// through to the QP back-end. Inequalities are folded into the cost by the
// relaxed barrier and never appear here.
//
// Projected semantics: u = F + DfDx*x + DfDu*uTilde.
// Raw semantics:        f_eq = F + DfDx*x + DfDu*u  (value at the block's linearization point).
type ConstraintBlock struct {
	Projected bool
	F         *Vector
	DfDx      *Matrix
	DfDu      *Matrix
}

// OcpSize describes the per-node shapes of one QP instance.
type OcpSize struct {
	N       int
	NState  []int // length N+1
	NInput  []int // length N
	NIneq   []int // length N+1
	NEq     []int // length N+1
}

// Validate reports a ShapeMismatch-class error if the slice lengths disagree
// with N.
func (s OcpSize) Validate() error {
	if len(s.NState) != s.N+1 {
		return newShapeMismatch("n_state", s.N+1, len(s.NState))
	}
	if len(s.NInput) != s.N {
		return newShapeMismatch("n_input", s.N, len(s.NInput))
	}
	if len(s.NIneq) != s.N+1 {
		return newShapeMismatch("n_ineq", s.N+1, len(s.NIneq))
	}
	if len(s.NEq) != s.N+1 {
		return newShapeMismatch("n_eq", s.N+1, len(s.NEq))
	}
	return nil
}

// PerformanceIndex is the aggregate cost/constraint-violation bookkeeping
// produced by one assembly or performance-evaluation pass.
type PerformanceIndex struct {
	TotalCost                   float64
	StateEqConstraintISE        float64
	StateInputEqConstraintISE   float64
	InequalityConstraintISE     float64
	InequalityConstraintPenalty float64
	Merit                       float64
}

// Add accumulates other into pi in place (used for the left-to-right,
// worker-id-ordered reduction of per-worker indices).
func (pi *PerformanceIndex) Add(other PerformanceIndex) {
	pi.TotalCost += other.TotalCost
	pi.StateEqConstraintISE += other.StateEqConstraintISE
	pi.StateInputEqConstraintISE += other.StateInputEqConstraintISE
	pi.InequalityConstraintISE += other.InequalityConstraintISE
	pi.InequalityConstraintPenalty += other.InequalityConstraintPenalty
	// Merit is recomputed by the caller once totalCost/penalty are final.
}

// ViolationNorm returns v = sqrt(stateEqISE + stateInputEqISE + ineqISE), the
// quantity the filter line-search acceptance table is defined over.
func (pi PerformanceIndex) ViolationNorm() float64 {
	sum := pi.StateEqConstraintISE + pi.StateInputEqConstraintISE + pi.InequalityConstraintISE
	if sum < 0 {
		sum = 0
	}
	return math.Sqrt(sum)
}

// FinalizeMerit sets Merit = TotalCost + InequalityConstraintPenalty, the
// identity required by spec testable property "merit identity".
func (pi *PerformanceIndex) FinalizeMerit() {
	pi.Merit = pi.TotalCost + pi.InequalityConstraintPenalty
}

// PrimalSolution is the result of one SQP solve: the time grid, full state
// and (tail-padded) input trajectories, the mode schedule it was solved
// against, and the emitted controller.
type PrimalSolution struct {
	TimeGrid     TimeGrid
	X            Trajectory
	U            Trajectory
	ModeSchedule ModeSchedule
	Controller   Controller
}
