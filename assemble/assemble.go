// Package assemble orchestrates the worker pool over one shooting grid,
// collecting each node's DynamicsBlock/CostBlock/ConstraintBlock from
// package transcribe and reducing per-worker PerformanceIndex
// contributions into one aggregate, in worker-id order, per spec.md
// section 4.5 / section 5's determinism requirement.
package assemble

import (
	"gonum.org/v1/gonum/mat"

	"msqp/ocp"
	"msqp/transcribe"
	"msqp/workerpool"
)

// Worker is one pool slot's private transcriber, built from its own
// collaborator clones (see ocp.SystemDynamics.Clone and friends).
type Worker struct {
	Transcriber *transcribe.Transcriber
}

// Assembler dispatches node transcription across a workerpool.Pool and
// assembles one QP instance's blocks and sizes.
type Assembler struct {
	Pool    *workerpool.Pool
	Workers []Worker // length == Pool.NThreads()
}

// Result is one SQP iteration's assembled subproblem.
type Result struct {
	Size        ocp.OcpSize
	Dynamics    []ocp.DynamicsBlock   // length N
	Cost        []ocp.CostBlock       // length N+1
	Constraints []ocp.ConstraintBlock // length N, zero value if no constraint at that node
	Index       ocp.PerformanceIndex
}

// Assemble transcribes every node of the grid in parallel and reduces
// the result. grid has length N+1; x has length N+1; u has length N.
// initState is the current MPC initial condition (spec.md section 4.5
// step 4: its residual against x[0] is folded into the aggregate
// stateEqConstraintISE after the join, not per-worker, since it is not a
// per-node quantity).
func (a *Assembler) Assemble(grid ocp.TimeGrid, initState *ocp.Vector, x, u ocp.Trajectory) (Result, error) {
	n := len(grid) - 1

	dynamics := make([]ocp.DynamicsBlock, n)
	cost := make([]ocp.CostBlock, n+1)
	constraints := make([]ocp.ConstraintBlock, n)
	nInput := make([]int, n)
	nEq := make([]int, n+1)

	perWorker := make([]ocp.PerformanceIndex, len(a.Workers))
	perWorkerErr := make([]error, len(a.Workers))

	a.Pool.Run(func(workerID, node int) {
		w := a.Workers[workerID]
		if node == n {
			cb, pi, err := w.Transcriber.TranscribeTerminal(grid[node], x[node])
			if err != nil {
				perWorkerErr[workerID] = err
				return
			}
			cost[node] = cb
			perWorker[workerID].Add(pi)
			return
		}

		dt := grid[node+1] - grid[node]
		dyn, cb, conb, pi, err := w.Transcriber.TranscribeInterval(node, grid[node], dt, x[node], x[node+1], u[node])
		if err != nil {
			perWorkerErr[workerID] = err
			return
		}
		dynamics[node] = dyn
		cost[node] = cb
		constraints[node] = conb
		// dyn.B is already reparameterized to the reduced free input when
		// conb.Projected (see transcribe.reduceDynamics), but report the
		// node's input count from the constraint block's DfDu directly
		// rather than relying on that incidentally matching, per the
		// n_input invariant in spec.md section 3.
		ninput := 0
		if conb.Projected && conb.DfDu != nil {
			_, ninput = conb.DfDu.Dims()
		} else {
			_, ninput = dyn.B.Dims()
		}
		nInput[node] = ninput
		if conb.F != nil && !conb.Projected {
			// Projected blocks carry no raw QP-visible equality rows;
			// only a pass-through (non-projected) block does.
			nEq[node] = conb.F.Len()
		}
		perWorker[workerID].Add(pi)
	}, n)

	for _, err := range perWorkerErr {
		if err != nil {
			return Result{}, err
		}
	}

	var agg ocp.PerformanceIndex
	for i := range perWorker {
		agg.Add(perWorker[i])
	}

	residual := ocp.SubVec(initState, x[0])
	agg.StateEqConstraintISE += mat.Dot(residual, residual)
	agg.FinalizeMerit()

	nState := make([]int, n+1)
	for i := 0; i <= n; i++ {
		if i == n {
			r, _ := cost[n].H.Dims()
			nState[i] = r
			continue
		}
		r, _ := dynamics[i].A.Dims()
		nState[i] = r
	}

	size := ocp.OcpSize{
		N:      n,
		NState: nState,
		NInput: nInput,
		NIneq:  make([]int, n+1), // inequalities are always folded into H/g, never raw rows
		NEq:    nEq,
	}
	if err := size.Validate(); err != nil {
		return Result{}, err
	}

	return Result{Size: size, Dynamics: dynamics, Cost: cost, Constraints: constraints, Index: agg}, nil
}

