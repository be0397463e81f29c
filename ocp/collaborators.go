package ocp

// SystemDynamics is the continuous-time vector field dx/dt = f(t, x, u) and
// its jacobians. Implementations are external collaborators (see
// SPEC_FULL.md non-goals); this package only declares the contract.
//
// Clone must return an independent evaluator carrying its own scratch
// state, so that n_threads clones can be evaluated concurrently without
// aliasing. Shared immutable data (e.g. reference trajectories) may be
// referenced rather than copied.
type SystemDynamics interface {
	// Flow evaluates f(t, x, u).
	Flow(t float64, x, u *Vector) *Vector
	// Jacobians evaluates df/dx and df/du at (t, x, u).
	Jacobians(t float64, x, u *Vector) (dfdx, dfdu *Matrix)
	Clone() SystemDynamics
}

// CostFunction is the stage and terminal cost and their quadratic
// approximations against a DesiredTrajectories reference.
type CostFunction interface {
	// StageCost returns the scalar stage cost at (t, x, u).
	StageCost(t float64, x, u *Vector, desired DesiredTrajectories) float64
	// TerminalCost returns the scalar terminal cost at (t, x).
	TerminalCost(t float64, x *Vector, desired DesiredTrajectories) float64
	// QuadratizeStage returns the quadratic model (H, g, c) of the stage
	// cost at (t, x, u) in the stacked [x;u] ordering.
	QuadratizeStage(t float64, x, u *Vector, desired DesiredTrajectories) (h *Matrix, g *Vector, c float64)
	// QuadratizeTerminal returns the quadratic model (H, g, c) of the
	// terminal cost at (t, x), state-only.
	QuadratizeTerminal(t float64, x *Vector, desired DesiredTrajectories) (h *Matrix, g *Vector, c float64)
	Clone() CostFunction
}

// Constraint supplies state-equality, state-input-equality, and
// inequality values and jacobians.
type Constraint interface {
	// StateInputEquality returns (f_eq, dfdx, dfdu) of the state-input
	// equality block C_u*u + C_x*x + f_eq = 0 at (t, x, u). A nil f_eq (or
	// a constraint with zero rows) means no equality constraint applies
	// at this node.
	StateInputEquality(t float64, x, u *Vector) (f *Vector, dfdx, dfdu *Matrix)
	// Inequality returns (g, dgdx, dgdu) of g(t,x,u) <= 0 at (t, x, u).
	Inequality(t float64, x, u *Vector) (g *Vector, dgdx, dgdu *Matrix)
	// TerminalInequality is the state-only analogue of Inequality at the
	// terminal node.
	TerminalInequality(t float64, x *Vector) (g *Vector, dgdx *Matrix)
	Clone() Constraint
}

// OperatingTrajectories is a heuristic (x, u) generator used by the
// trajectory initializer beyond the span of a previous solution, or on
// a cold start.
type OperatingTrajectories interface {
	// Sample returns a heuristic input at time t given the operating
	// state x and the next grid time tNext.
	Sample(t, tNext float64, x *Vector) *Vector
	Clone() OperatingTrajectories
}

// ModeSchedule is the sorted list of event times at which the dynamics
// mode switches.
type ModeSchedule struct {
	EventTimes []float64
}

// DesiredTrajectories are the reference signals a CostFunction is
// evaluated against. The zero value denotes "no reference" (e.g. pure
// regulation to the origin); cost functions interpret it as they see fit.
type DesiredTrajectories struct {
	Times  []float64
	States []*Vector
	Inputs []*Vector
}

// DesiredStateAt linearly interpolates the reference state at time t; it
// returns nil if no reference states were provided.
func (d DesiredTrajectories) DesiredStateAt(t float64) *Vector {
	return interpolateVector(d.Times, d.States, t)
}

// DesiredInputAt linearly interpolates the reference input at time t; it
// returns nil if no reference inputs were provided.
func (d DesiredTrajectories) DesiredInputAt(t float64) *Vector {
	return interpolateVector(d.Times, d.Inputs, t)
}
