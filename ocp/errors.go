package ocp

import "fmt"

// QPSolveFailure wraps a non-success status returned by the QP back-end.
// It is fatal to the current SQP step: the caller must not update the
// primal trajectory from it.
type QPSolveFailure struct {
	Iteration int
	Status    string
}

func (e *QPSolveFailure) Error() string {
	return fmt.Sprintf("qp solve failed at iteration %d: %s", e.Iteration, e.Status)
}

// EmptyLogQuery is returned by GetIterationsLog when no solve has run yet.
type EmptyLogQuery struct{}

func (e *EmptyLogQuery) Error() string {
	return "iteration log requested before any solve"
}

// ShapeMismatch is a programming-error-class fault: a block's dimensions
// disagree with the OcpSize it was assembled against.
type ShapeMismatch struct {
	Field    string
	Expected int
	Actual   int
}

func (e *ShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch on %s: expected %d, got %d", e.Field, e.Expected, e.Actual)
}

func newShapeMismatch(field string, expected, actual int) error {
	return &ShapeMismatch{Field: field, Expected: expected, Actual: actual}
}

// RankDeficientProjection is the fatal diagnostic raised when the
// state-input equality Jacobian does not have full row rank at a node,
// resolving the open question in spec.md/SPEC_FULL.md section 9: the
// engine never falls back to a pseudo-inverse, it fails fast and names
// the offending node.
type RankDeficientProjection struct {
	Node int
	Rank int
	Rows int
}

func (e *RankDeficientProjection) Error() string {
	return fmt.Sprintf("node %d: state-input equality jacobian has rank %d, want %d (full row rank required for projection)", e.Node, e.Rank, e.Rows)
}
