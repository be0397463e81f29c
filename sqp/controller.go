package sqp

import (
	"msqp/assemble"
	"msqp/ocp"
)

// buildController assembles the emitted Controller from the final
// converged (x, u) and the last QP solve's Riccati feedback, per
// spec.md section 4.8 step 5.
//
// Feedforward mode (cfg.ControllerFeedback == false) simply replays u.
//
// Feedback mode recovers K_eff per node: when projection is disabled,
// the adapter's K already acts directly on Δx to produce Δu, so
// K_eff = K. When projection is enabled, the adapter solved in the
// reduced free-input space, so K is K_reduced and must be combined with
// the node's projection map, K_eff = DfDx + DfDu*K_reduced, per
// SPEC_FULL.md section 9's K_eff identity. uff[i] = u[i] - K_eff[i]*x[i]
// so that Sample(t_i, x[i]) reproduces u[i] exactly.
func (d *Driver) buildController(grid ocp.TimeGrid, x, u ocp.Trajectory, lastResult assemble.Result) (ocp.Controller, error) {
	if !d.cfg.ControllerFeedback {
		times := make([]float64, len(u))
		copy(times, grid[:len(u)])
		return ocp.NewFeedforwardController(times, u), nil
	}

	kReduced, err := d.adapter.GetRiccatiFeedback()
	if err != nil {
		return nil, err
	}

	n := len(u)
	times := make([]float64, n)
	copy(times, grid[:n])
	uff := make([]*ocp.Vector, n)
	kEff := make([]*ocp.Matrix, n)

	for i := 0; i < n; i++ {
		k := kReduced[i]
		if d.cfg.ProjectStateInputEqualityConstraints && i < len(lastResult.Constraints) && lastResult.Constraints[i].Projected {
			block := lastResult.Constraints[i]
			keffI := ocp.MatMul(block.DfDu, k)
			if block.DfDx != nil {
				keffI = ocp.MatAdd(block.DfDx, keffI)
			}
			k = keffI
		}
		kEff[i] = k

		feedback := ocp.NewVector(u[i].Len())
		feedback.MulVec(k, x[i])
		uff[i] = ocp.SubVec(u[i], feedback)
	}

	return ocp.NewFeedbackController(times, uff, kEff), nil
}
