// Package initializer builds the cold-start or warm-started initial
// (x, u) trajectories for one SQP solve, per spec.md section 4.7.
package initializer

import "msqp/ocp"

// Previous is a prior solve's result, consulted for warm-starting.
type Previous struct {
	TimeGrid ocp.TimeGrid
	X        ocp.Trajectory
	U        ocp.Trajectory
}

// Initialize builds x, u aligned with grid. initState seeds x[0] and is
// also used for every x[i] on a cold start (prev == nil). Beyond the
// span of prev's time grid, or on a cold start, inputs fall back to the
// operating-trajectory collaborator if present, else zero.
func Initialize(grid ocp.TimeGrid, initState *ocp.Vector, prev *Previous, operating ocp.OperatingTrajectories) (x, u ocp.Trajectory) {
	n := len(grid) - 1
	nInput := 0
	if operating != nil {
		nInput = operating.Sample(grid[0], grid[0], initState).Len()
	} else if prev != nil && len(prev.U) > 0 {
		nInput = prev.U[0].Len()
	}

	x = make(ocp.Trajectory, n+1)
	u = make(ocp.Trajectory, n)

	x[0] = ocp.ScaleVec(1, initState)
	for i := 1; i <= n; i++ {
		if prev == nil {
			x[i] = ocp.ScaleVec(1, initState)
			continue
		}
		x[i] = interpolateState(prev, grid[i])
	}

	for i := 0; i < n; i++ {
		if prev != nil && withinSpan(prev.TimeGrid, grid[i]) {
			u[i] = interpolateInput(prev, grid[i])
			continue
		}
		if operating != nil {
			u[i] = operating.Sample(grid[i], grid[i+1], x[i])
			continue
		}
		u[i] = ocp.ZeroVec(nInput)
	}
	return x, u
}

func withinSpan(grid ocp.TimeGrid, t float64) bool {
	if len(grid) == 0 {
		return false
	}
	return t >= grid[0] && t <= grid[len(grid)-1]
}

func interpolateState(prev *Previous, t float64) *ocp.Vector {
	return interpolateTrajectory(prev.TimeGrid, prev.X, t)
}

func interpolateInput(prev *Previous, t float64) *ocp.Vector {
	return interpolateTrajectory(prev.TimeGrid, prev.U, t)
}

// interpolateTrajectory performs piecewise-linear interpolation of a
// trajectory aligned with grid, clamping to the endpoints.
func interpolateTrajectory(grid ocp.TimeGrid, traj ocp.Trajectory, t float64) *ocp.Vector {
	n := len(traj)
	if n == 0 {
		return nil
	}
	if n == 1 || t <= grid[0] {
		return ocp.ScaleVec(1, traj[0])
	}
	last := n - 1
	if last >= len(grid) {
		last = len(grid) - 1
	}
	if t >= grid[last] {
		return ocp.ScaleVec(1, traj[last])
	}
	for i := 0; i < last; i++ {
		if t >= grid[i] && t <= grid[i+1] {
			span := grid[i+1] - grid[i]
			if span <= 0 {
				return ocp.ScaleVec(1, traj[i])
			}
			frac := (t - grid[i]) / span
			return ocp.LerpVec(traj[i], traj[i+1], frac)
		}
	}
	return ocp.ScaleVec(1, traj[last])
}
