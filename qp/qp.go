// Package qp is the structured OCP-QP back-end adapter: it accepts the
// per-node dynamics/cost blocks assembled by package assemble, solves
// the banded QP via a backward-forward Riccati recursion, and extracts
// the feedback gain sequence. Inequalities never reach this package --
// they are folded into H/g upstream by transcribe's relaxed barrier, so
// the adapter's contract stays exactly {dynamics, cost, optional raw
// equality} -> {step, status, Riccati K}.
package qp

import (
	"gonum.org/v1/gonum/mat"

	"msqp/ocp"
)

// Status is the back-end's solve outcome.
type Status int

const (
	Success Status = iota
	Failed
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "failed"
}

// Adapter is the contract described in spec.md section 4.4.
type Adapter interface {
	Resize(size ocp.OcpSize)
	Solve(dx0 *ocp.Vector, dyn []ocp.DynamicsBlock, cost []ocp.CostBlock, eq []ocp.ConstraintBlock) (dx, du ocp.Trajectory, status Status, err error)
	GetRiccatiFeedback() ([]*ocp.Matrix, error)
}

// RiccatiSolver is the concrete Adapter: a dense, node-by-node backward
// Riccati recursion followed by a forward rollout, using gonum's
// Cholesky factorization of each node's reduced-input Hessian. Raw
// (non-projected) state-input equality blocks, when present, are
// eliminated per node via the same QR null-space technique as package
// transcribe before the Riccati sweep runs, and the eliminated input is
// expanded back into the reported Δu.
type RiccatiSolver struct {
	size ocp.OcpSize

	// cached from the last solve, used by GetRiccatiFeedback.
	k       []*ocp.Matrix
	p       []*ocp.Matrix
	lastDyn []ocp.DynamicsBlock
	lastH   []*ocp.Matrix
	solved  bool
}

// NewRiccatiSolver constructs an adapter with no cached factorization;
// Resize must be called (it is idempotent) before the first Solve.
func NewRiccatiSolver() *RiccatiSolver {
	return &RiccatiSolver{}
}

func (s *RiccatiSolver) Resize(size ocp.OcpSize) {
	s.size = size
}

// Solve runs the backward Riccati recursion over nodes N..0 using the
// per-node cost Hessians and dynamics, eliminating any raw equality
// block node-by-node first, then rolls forward from Δx0 to produce the
// primal step (Δx, Δu).
func (s *RiccatiSolver) Solve(dx0 *ocp.Vector, dyn []ocp.DynamicsBlock, cost []ocp.CostBlock, eq []ocp.ConstraintBlock) (ocp.Trajectory, ocp.Trajectory, Status, error) {
	n := s.size.N
	if err := s.size.Validate(); err != nil {
		return nil, nil, Failed, err
	}

	// Node-local elimination of raw equality constraints (projection
	// disabled path): reduce (H_i, g_i) over [x;u] to an equivalent
	// model over [x;uTilde_i] and remember the reconstruction so uTilde
	// can be expanded back to u after the forward pass.
	reducedH := make([]*ocp.Matrix, n+1)
	reducedG := make([]*ocp.Vector, n+1)
	reconF := make([]*ocp.Vector, n)
	reconDfdx := make([]*ocp.Matrix, n)
	reconDfdu := make([]*ocp.Matrix, n)

	// reducedDyn carries, per node, the dynamics block in whatever
	// input space reducedH/reducedG were just built over: unchanged for
	// unconstrained nodes, already reparameterized by transcribe for
	// projected nodes, and reparameterized here (to match reduceCost's
	// reduction of the same node's cost) for raw equality nodes.
	reducedDyn := make([]ocp.DynamicsBlock, n)
	copy(reducedDyn, dyn)

	for i := 0; i <= n; i++ {
		h, g := cost[i].H, cost[i].G
		if i < n && eq != nil && eq[i].DfDu != nil && !eq[i].Projected {
			// Raw equality block still present at the adapter boundary:
			// eliminate it here exactly as transcribe would have, had
			// projection been enabled.
			f, dfdx, dfdu, err := eliminate(i, eq[i].DfDu, eq[i].DfDx, eq[i].F)
			if err != nil {
				return nil, nil, Failed, err
			}
			h, g, _ = reduceCost(h, g, cost[i].C, stateDim(dyn, i, n), f, dfdx, dfdu)
			reducedDyn[i] = reduceDynamics(dyn[i], f, dfdx, dfdu)
			reconF[i], reconDfdx[i], reconDfdu[i] = f, dfdx, dfdu
		} else if i < n && eq != nil && eq[i].Projected {
			reconF[i], reconDfdx[i], reconDfdu[i] = eq[i].F, eq[i].DfDx, eq[i].DfDu
		}
		reducedH[i] = h
		reducedG[i] = g
	}

	p := make([]*ocp.Matrix, n+1)
	pv := make([]*ocp.Vector, n+1)
	k := make([]*ocp.Matrix, n)
	kv := make([]*ocp.Vector, n)

	nStateN := stateDimAt(reducedH[n], dyn, n, n)
	p[n] = ocp.NewMatrix(nStateN, nStateN)
	p[n].Copy(reducedH[n])
	pv[n] = ocp.ScaleVec(1, reducedG[n])

	for i := n - 1; i >= 0; i-- {
		a, b := reducedDyn[i].A, reducedDyn[i].B
		bias := reducedDyn[i].Bias
		nx, _ := a.Dims()
		_, nu := b.Dims()

		hxx := ocp.NewMatrix(nx, nx)
		hxx.Copy(reducedH[i].Slice(0, nx, 0, nx))
		hxu := ocp.NewMatrix(nx, nu)
		hxu.Copy(reducedH[i].Slice(0, nx, nx, nx+nu))
		huu := ocp.NewMatrix(nu, nu)
		huu.Copy(reducedH[i].Slice(nx, nx+nu, nx, nx+nu))
		gx := ocp.NewVector(nx)
		for j := 0; j < nx; j++ {
			gx.SetVec(j, reducedG[i].AtVec(j))
		}
		gu := ocp.NewVector(nu)
		for j := 0; j < nu; j++ {
			gu.SetVec(j, reducedG[i].AtVec(nx+j))
		}

		pNext := p[i+1]
		pvNext := pv[i+1]

		aT := ocp.Transpose(a)
		bT := ocp.Transpose(b)

		qxx := ocp.MatAdd(hxx, ocp.MatMul(aT, ocp.MatMul(pNext, a)))
		qxu := ocp.MatAdd(hxu, ocp.MatMul(aT, ocp.MatMul(pNext, b)))
		quu := ocp.MatAdd(huu, ocp.MatMul(bT, ocp.MatMul(pNext, b)))

		pNextBias := ocp.AddVec(ocp.MulMatVec(pNext, bias), pvNext)
		qx := ocp.AddVec(gx, ocp.MulMatVec(aT, pNextBias))
		qu := ocp.AddVec(gu, ocp.MulMatVec(bT, pNextBias))

		var chol mat.Cholesky
		if ok := chol.Factorize(asSymmetric(quu)); !ok {
			return nil, nil, Failed, &ocp.QPSolveFailure{Iteration: i, Status: "quu not positive definite"}
		}

		// quuInvQux = quu^-1 * qux, already shaped (nu x nx) since qux = qxu^T.
		var quuInvQux mat.Dense
		if err := chol.SolveTo(&quuInvQux, qxu.T()); err != nil {
			return nil, nil, Failed, &ocp.QPSolveFailure{Iteration: i, Status: err.Error()}
		}
		kI := ocp.MatScale(-1, &quuInvQux)

		var quuInvQu mat.VecDense
		if err := chol.SolveVecTo(&quuInvQu, qu); err != nil {
			return nil, nil, Failed, &ocp.QPSolveFailure{Iteration: i, Status: err.Error()}
		}
		kvI := ocp.ScaleVec(-1, &quuInvQu)

		k[i] = kI
		kv[i] = kvI

		pI := ocp.MatAdd(qxx, ocp.MatMul(qxu, kI))
		pvI := ocp.AddVec(qx, ocp.MulMatVec(qxu, kvI))
		p[i] = pI
		pv[i] = pvI
	}

	dx := make(ocp.Trajectory, n+1)
	du := make(ocp.Trajectory, n)
	dx[0] = ocp.ScaleVec(1, dx0)
	for i := 0; i < n; i++ {
		du[i] = ocp.AddVec(ocp.MulMatVec(k[i], dx[i]), kv[i])
		dx[i+1] = ocp.AddVec(ocp.AddVec(ocp.MulMatVec(reducedDyn[i].A, dx[i]), ocp.MulMatVec(reducedDyn[i].B, du[i])), reducedDyn[i].Bias)
	}

	// Nodes whose raw equality block was eliminated above report their
	// step and gain over the full input: u = f + dfdx*x + dfdu*uTilde.
	for i := 0; i < n; i++ {
		if reconDfdu[i] == nil || eq[i].Projected {
			continue
		}
		du[i] = ocp.AddVec(ocp.AddVec(reconF[i], ocp.MulMatVec(reconDfdx[i], dx[i])), ocp.MulMatVec(reconDfdu[i], du[i]))
		k[i] = ocp.MatAdd(reconDfdx[i], ocp.MatMul(reconDfdu[i], k[i]))
	}

	s.k = k
	s.p = p
	s.lastDyn = reducedDyn
	s.lastH = reducedH
	s.solved = true

	return dx, du, Success, nil
}

// GetRiccatiFeedback returns the cached feedback-gain sequence K_i from
// the last successful Solve. Gains of nodes whose raw equality block
// Solve eliminated are expanded back to the full input; gains of
// projected nodes stay in the reduced-input space (callers in the
// projected path combine them with the projection map per spec.md
// section 9's K_eff identity).
func (s *RiccatiSolver) GetRiccatiFeedback() ([]*ocp.Matrix, error) {
	if !s.solved {
		return nil, &ocp.EmptyLogQuery{}
	}
	return s.k, nil
}

func asSymmetric(m *ocp.Matrix) mat.Symmetric {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (m.At(i, j) + m.At(j, i))
			sym.SetSym(i, j, v)
		}
	}
	return sym
}

func stateDim(dyn []ocp.DynamicsBlock, i, n int) int {
	if i < n {
		r, _ := dyn[i].A.Dims()
		return r
	}
	return 0
}

func stateDimAt(h *ocp.Matrix, dyn []ocp.DynamicsBlock, i, n int) int {
	r, _ := h.Dims()
	return r
}
