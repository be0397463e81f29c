// Package sqp is the outer SQP driver of spec.md section 4.8: per-solve
// time-grid construction, trajectory initialization, the
// assemble/solve/line-search iteration, and controller assembly from the
// final QP's Riccati feedback.
package sqp

import (
	"time"

	"msqp/assemble"
	"msqp/initializer"
	"msqp/linesearch"
	"msqp/ocp"
	"msqp/ocpconfig"
	"msqp/performance"
	"msqp/qp"
	"msqp/timegrid"
	"msqp/transcribe"
	"msqp/workerpool"
)

// Problem bundles the external collaborators one Driver is built from.
// Constraint and Operating are optional (nil means "not configured").
type Problem struct {
	Dynamics   ocp.SystemDynamics
	Cost       ocp.CostFunction
	Constraint ocp.Constraint
	Operating  ocp.OperatingTrajectories
	Desired    ocp.DesiredTrajectories
	Schedule   ocp.ModeSchedule
}

// Driver owns the worker pool, the per-worker collaborator clones, the
// QP adapter, and the warm-start state across successive MPC solves.
type Driver struct {
	cfg  ocpconfig.Config
	pool *workerpool.Pool

	assembleWorkers []assemble.Worker
	perfEvaluators  []performance.Evaluator

	adapter qp.Adapter

	operating ocp.OperatingTrajectories
	schedule  ocp.ModeSchedule

	prev *initializer.Previous
	log  []ocp.PerformanceIndex

	benchmark Benchmark
}

// NewDriver clones p's collaborators cfg.NThreads times (one per worker
// slot) and constructs the worker pool, per spec.md section 3's
// "evaluator cloning" ownership rule.
func NewDriver(cfg ocpconfig.Config, p Problem) *Driver {
	pool := workerpool.New(cfg.NThreads)

	integ := integratorOf(cfg.IntegratorType)
	perfInteg := performanceIntegratorOf(cfg.IntegratorType)

	opts := transcribe.Options{
		Integrator:                           integ,
		ProjectStateInputEqualityConstraints: cfg.ProjectStateInputEqualityConstraints,
		InequalityMu:                         cfg.InequalityConstraintMu,
		InequalityDelta:                      cfg.InequalityConstraintDelta,
	}

	assembleWorkers := make([]assemble.Worker, pool.NThreads())
	perfEvaluators := make([]performance.Evaluator, pool.NThreads())
	for i := range assembleWorkers {
		dynClone := p.Dynamics.Clone()
		costClone := p.Cost.Clone()
		var constraintClone ocp.Constraint
		if p.Constraint != nil {
			constraintClone = p.Constraint.Clone()
		}
		assembleWorkers[i] = assemble.Worker{Transcriber: &transcribe.Transcriber{
			Dynamics:   dynClone,
			Cost:       costClone,
			Constraint: constraintClone,
			Desired:    p.Desired,
			Opts:       opts,
		}}

		dynClone2 := p.Dynamics.Clone()
		costClone2 := p.Cost.Clone()
		var constraintClone2 ocp.Constraint
		if p.Constraint != nil {
			constraintClone2 = p.Constraint.Clone()
		}
		perfEvaluators[i] = performance.Evaluator{
			Dynamics:        dynClone2,
			Cost:            costClone2,
			Constraint:      constraintClone2,
			Desired:         p.Desired,
			Integrator:      perfInteg,
			InequalityMu:    cfg.InequalityConstraintMu,
			InequalityDelta: cfg.InequalityConstraintDelta,
		}
	}

	return &Driver{
		cfg:             cfg,
		pool:            pool,
		assembleWorkers: assembleWorkers,
		perfEvaluators:  perfEvaluators,
		adapter:         qp.NewRiccatiSolver(),
		operating:       p.Operating,
		schedule:        p.Schedule,
	}
}

// Close releases the worker pool. Call once the driver is no longer
// needed.
func (d *Driver) Close() {
	d.pool.Close()
}

// GetIterationsLog returns the PerformanceIndex recorded at each SQP
// iteration of the most recent Solve. Calling it before any Solve is an
// EmptyLogQuery error (spec.md section 7).
func (d *Driver) GetIterationsLog() ([]ocp.PerformanceIndex, error) {
	if d.log == nil {
		return nil, &ocp.EmptyLogQuery{}
	}
	return d.log, nil
}

// Benchmark returns the per-phase timing report of the most recent Solve.
func (d *Driver) Benchmark() Benchmark {
	return d.benchmark
}

// Solve runs the sequence of spec.md section 4.8 over [initTime,
// finalTime] from initState, returning the primal solution and
// controller, or a fatal error (QPSolveFailure, ShapeMismatch,
// RankDeficientProjection). A return with no error and a non-empty log
// shorter than cfg.SqpIteration indicates convergence; a log exactly
// cfg.SqpIteration long with no line-search convergence is the
// NonConverged case -- not an error, per spec.md section 7.
func (d *Driver) Solve(initTime float64, initState *ocp.Vector, finalTime float64) (ocp.PrimalSolution, error) {
	bm := newBenchmarkAccumulator()

	grid := timegrid.Build(initTime, finalTime, d.cfg.Dt, d.schedule.EventTimes, d.cfg.GridEpsilon)

	x, u := initializer.Initialize(grid, initState, d.prev, d.operating)

	d.adapter.Resize(ocp.OcpSize{}) // idempotent; real size set after first assembly

	// A fresh slice, so a log returned for an earlier Solve is not overwritten.
	d.log = make([]ocp.PerformanceIndex, 0, d.cfg.SqpIteration)

	var lastResult assemble.Result

	for iter := 0; iter < d.cfg.SqpIteration; iter++ {
		assembleStart := now()
		result, err := d.assemble(grid, initState, x, u)
		if err != nil {
			return ocp.PrimalSolution{}, err
		}
		bm.add(phaseAssembly, since(assembleStart))
		d.log = append(d.log, result.Index)
		lastResult = result

		d.adapter.Resize(result.Size)
		dx0 := ocp.SubVec(initState, x[0])

		qpStart := now()
		dxStep, duStep, status, err := d.adapter.Solve(dx0, result.Dynamics, result.Cost, result.Constraints)
		bm.add(phaseQP, since(qpStart))
		if err != nil {
			return ocp.PrimalSolution{}, err
		}
		if status != qp.Success {
			return ocp.PrimalSolution{}, &ocp.QPSolveFailure{Iteration: iter, Status: status.String()}
		}

		duReal := make(ocp.Trajectory, len(duStep))
		for i := range duReal {
			duReal[i] = reverseProjection(result.Constraints, i, dxStep[i], duStep[i])
		}

		dxNorm := ocp.TrajectoryNorm(dxStep)
		duNorm := ocp.TrajectoryNorm(duReal)

		lsStart := now()
		outcome := linesearch.Search(result.Index, dxNorm, duNorm, lineSearchParams(d.cfg), func(alpha float64) ocp.PerformanceIndex {
			candX, candU := stepTrajectories(x, u, dxStep, duReal, alpha)
			return performance.Evaluate(d.pool, d.perfEvaluators, grid, initState, candX, candU)
		})
		bm.add(phaseLineSearch, since(lsStart))

		if outcome.Accepted {
			x, u = stepTrajectories(x, u, dxStep, duReal, outcome.Alpha)
		}
		if outcome.Converged {
			break
		}
	}

	controllerStart := now()
	controller, err := d.buildController(grid, x, u, lastResult)
	bm.add(phaseController, since(controllerStart))
	if err != nil {
		return ocp.PrimalSolution{}, err
	}

	uPadded := padInputTail(u)

	d.prev = &initializer.Previous{TimeGrid: grid, X: x, U: u}
	d.benchmark = bm.finish()

	return ocp.PrimalSolution{
		TimeGrid:     grid,
		X:            x,
		U:            uPadded,
		ModeSchedule: d.schedule,
		Controller:   controller,
	}, nil
}

func (d *Driver) assemble(grid ocp.TimeGrid, initState *ocp.Vector, x, u ocp.Trajectory) (assemble.Result, error) {
	a := &assemble.Assembler{Pool: d.pool, Workers: d.assembleWorkers}
	return a.Assemble(grid, initState, x, u)
}

func now() time.Time { return time.Now() }

func since(t time.Time) time.Duration { return time.Since(t) }
