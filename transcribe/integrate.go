package transcribe

import "msqp/ocp"

// Integrator is one of the three fixed-order schemes named in
// spec.md/SPEC_FULL.md section 6; each has a matching sensitivity
// integrator used to produce the DynamicsBlock's A, B alongside the
// propagated state, following the stage-composition style of
// soypat/godesim's RK solvers (see SPEC_FULL.md DOMAIN STACK) generalized
// to also carry first-order state/input sensitivities through the same
// stages (zero-order-hold input over the interval).
type Integrator int

const (
	Euler Integrator = iota
	RK2
	RK4
)

// step is the state-only propagation (no derivatives). Package
// performance keeps its own copy of this stepper and does not call it.
func step(integ Integrator, dyn ocp.SystemDynamics, t, dt float64, x, u *ocp.Vector) *ocp.Vector {
	switch integ {
	case RK2:
		k1 := dyn.Flow(t, x, u)
		xm := ocp.AddVec(x, ocp.ScaleVec(dt/2, k1))
		k2 := dyn.Flow(t+dt/2, xm, u)
		return ocp.AddVec(x, ocp.ScaleVec(dt, k2))
	case RK4:
		k1 := dyn.Flow(t, x, u)
		x2 := ocp.AddVec(x, ocp.ScaleVec(dt/2, k1))
		k2 := dyn.Flow(t+dt/2, x2, u)
		x3 := ocp.AddVec(x, ocp.ScaleVec(dt/2, k2))
		k3 := dyn.Flow(t+dt/2, x3, u)
		x4 := ocp.AddVec(x, ocp.ScaleVec(dt, k3))
		k4 := dyn.Flow(t+dt, x4, u)
		sum := ocp.AddVec(k1, ocp.ScaleVec(2, k2))
		sum = ocp.AddVec(sum, ocp.ScaleVec(2, k3))
		sum = ocp.AddVec(sum, k4)
		return ocp.AddVec(x, ocp.ScaleVec(dt/6, sum))
	default: // Euler
		k1 := dyn.Flow(t, x, u)
		return ocp.AddVec(x, ocp.ScaleVec(dt, k1))
	}
}

// stepWithSensitivity propagates the state and the local A, B
// sensitivities (dx+/dx, dx+/du) over one interval, using the scheme's
// matching sensitivity integrator.
func stepWithSensitivity(integ Integrator, dyn ocp.SystemDynamics, t, dt float64, x, u *ocp.Vector) (xNext *ocp.Vector, a, b *ocp.Matrix) {
	n := x.Len()
	I := ocp.Identity(n)

	switch integ {
	case RK2:
		k1 := dyn.Flow(t, x, u)
		a1, b1 := dyn.Jacobians(t, x, u)
		xm := ocp.AddVec(x, ocp.ScaleVec(dt/2, k1))
		dxmDx := ocp.MatAddScaled(I, dt/2, a1)
		dxmDu := ocp.MatScale(dt/2, b1)

		k2 := dyn.Flow(t+dt/2, xm, u)
		am, bm := dyn.Jacobians(t+dt/2, xm, u)

		xNext = ocp.AddVec(x, ocp.ScaleVec(dt, k2))
		a = ocp.MatAddScaled(I, dt, ocp.MatMul(am, dxmDx))
		b = ocp.MatScale(dt, ocp.MatAdd(bm, ocp.MatMul(am, dxmDu)))
		return xNext, a, b

	case RK4:
		k1 := dyn.Flow(t, x, u)
		a1, b1 := dyn.Jacobians(t, x, u)
		dk1dx, dk1du := a1, b1

		x2 := ocp.AddVec(x, ocp.ScaleVec(dt/2, k1))
		dx2dx := ocp.MatAddScaled(I, dt/2, dk1dx)
		dx2du := ocp.MatScale(dt/2, dk1du)
		k2 := dyn.Flow(t+dt/2, x2, u)
		a2, b2 := dyn.Jacobians(t+dt/2, x2, u)
		dk2dx := ocp.MatMul(a2, dx2dx)
		dk2du := ocp.MatAdd(ocp.MatMul(a2, dx2du), b2)

		x3 := ocp.AddVec(x, ocp.ScaleVec(dt/2, k2))
		dx3dx := ocp.MatAddScaled(I, dt/2, dk2dx)
		dx3du := ocp.MatScale(dt/2, dk2du)
		k3 := dyn.Flow(t+dt/2, x3, u)
		a3, b3 := dyn.Jacobians(t+dt/2, x3, u)
		dk3dx := ocp.MatMul(a3, dx3dx)
		dk3du := ocp.MatAdd(ocp.MatMul(a3, dx3du), b3)

		x4 := ocp.AddVec(x, ocp.ScaleVec(dt, k3))
		dx4dx := ocp.MatAddScaled(I, dt, dk3dx)
		dx4du := ocp.MatScale(dt, dk3du)
		k4 := dyn.Flow(t+dt, x4, u)
		a4, b4 := dyn.Jacobians(t+dt, x4, u)
		dk4dx := ocp.MatMul(a4, dx4dx)
		dk4du := ocp.MatAdd(ocp.MatMul(a4, dx4du), b4)

		sumK := ocp.AddVec(k1, ocp.ScaleVec(2, k2))
		sumK = ocp.AddVec(sumK, ocp.ScaleVec(2, k3))
		sumK = ocp.AddVec(sumK, k4)
		xNext = ocp.AddVec(x, ocp.ScaleVec(dt/6, sumK))

		sumDx := ocp.MatAdd(dk1dx, ocp.MatScale(2, dk2dx))
		sumDx = ocp.MatAdd(sumDx, ocp.MatScale(2, dk3dx))
		sumDx = ocp.MatAdd(sumDx, dk4dx)
		a = ocp.MatAddScaled(I, dt/6, sumDx)

		sumDu := ocp.MatAdd(dk1du, ocp.MatScale(2, dk2du))
		sumDu = ocp.MatAdd(sumDu, ocp.MatScale(2, dk3du))
		sumDu = ocp.MatAdd(sumDu, dk4du)
		b = ocp.MatScale(dt/6, sumDu)
		return xNext, a, b

	default: // Euler
		k1 := dyn.Flow(t, x, u)
		dfdx, dfdu := dyn.Jacobians(t, x, u)
		xNext = ocp.AddVec(x, ocp.ScaleVec(dt, k1))
		a = ocp.MatAddScaled(I, dt, dfdx)
		b = ocp.MatScale(dt, dfdu)
		return xNext, a, b
	}
}
