package transcribe

import (
	"gonum.org/v1/gonum/mat"

	"msqp/ocp"
)

// projectEquality builds the affine reconstruction u = f + dfdx*x + dfdu*uTilde
// that reparameterizes the state-input equality block
// cu*u + cx*x + feq = 0 onto the null space of cu, following the QR
// null-space technique named in SPEC_FULL.md section 4.3 (grounded on
// gonum's mat.QR, as used for decompositions throughout this package's
// sibling qp adapter). cu must have full row rank; a rank-deficient cu
// is reported as ocp.RankDeficientProjection rather than pseudo-inverted,
// per the "fail fast" resolution of the open question in SPEC_FULL.md
// section 9.
func projectEquality(node int, cu, cx *ocp.Matrix, feq *ocp.Vector) (f *ocp.Vector, dfdx, dfdu *ocp.Matrix, err error) {
	neq, ninput := cu.Dims()
	_, nstate := cx.Dims()

	if neq == 0 {
		return ocp.ZeroVec(ninput), ocp.NewMatrix(ninput, nstate), ocp.Identity(ninput), nil
	}

	cuT := ocp.Transpose(cu) // ninput x neq

	var qr mat.QR
	qr.Factorize(cuT)

	rFull := mat.NewDense(ninput, neq, nil)
	qr.RTo(rFull)
	r1 := mat.DenseCopyOf(rFull.Slice(0, neq, 0, neq))

	const rankTol = 1e-10
	for i := 0; i < neq; i++ {
		if abs(r1.At(i, i)) < rankTol {
			return nil, nil, nil, &ocp.RankDeficientProjection{Node: node, Rank: i, Rows: neq}
		}
	}

	qFull := mat.NewDense(ninput, ninput, nil)
	qr.QTo(qFull)
	q1 := mat.DenseCopyOf(qFull.Slice(0, ninput, 0, neq))     // ninput x neq, row space of cu
	q2 := mat.DenseCopyOf(qFull.Slice(0, ninput, neq, ninput)) // ninput x (ninput-neq), null space of cu

	r1T := ocp.Transpose(r1)

	// v = cu^+ * rhs = q1 * (r1^T \ rhs), solved for rhs = -feq and each
	// column of -cx in turn.
	ySolve := func(rhs mat.Matrix) *ocp.Matrix {
		var y mat.Dense
		if err := y.Solve(r1T, rhs); err != nil {
			// r1 is checked non-singular above; Solve should not fail.
			panic(err)
		}
		out := ocp.NewMatrix(ninput, y.RawMatrix().Cols)
		out.Mul(q1, &y)
		return out
	}

	negFeq := ocp.NewMatrix(neq, 1)
	for i := 0; i < neq; i++ {
		negFeq.Set(i, 0, -feq.AtVec(i))
	}
	fMat := ySolve(negFeq)
	f = ocp.NewVector(ninput)
	for i := 0; i < ninput; i++ {
		f.SetVec(i, fMat.At(i, 0))
	}

	negCx := ocp.MatScale(-1, cx)
	dfdx = ySolve(negCx)
	dfdu = mat.DenseCopyOf(q2)

	return f, dfdx, dfdu, nil
}

// projectCostBlock substitutes u = f + dfdx*x + dfdu*uTilde into the
// stacked [x;u] quadratic cost (h, g, c), returning the equivalent
// quadratic model over the reduced stack [x;uTilde].
func projectCostBlock(h *ocp.Matrix, g *ocp.Vector, c float64, nstate int, f *ocp.Vector, dfdx, dfdu *ocp.Matrix) (*ocp.Matrix, *ocp.Vector, float64) {
	ninput := f.Len()
	_, nuTilde := dfdu.Dims()

	total := nstate + ninput
	totalRed := nstate + nuTilde

	// T maps [x; uTilde] -> [x; u] = [[I, 0], [dfdx, dfdu]] * [x;uTilde] + [0;f].
	tMat := ocp.NewMatrix(total, totalRed)
	for i := 0; i < nstate; i++ {
		tMat.Set(i, i, 1)
	}
	tMat.Slice(nstate, total, 0, nstate).(*mat.Dense).Copy(dfdx)
	tMat.Slice(nstate, total, nstate, totalRed).(*mat.Dense).Copy(dfdu)

	s := ocp.NewVector(total)
	for i := 0; i < ninput; i++ {
		s.SetVec(nstate+i, f.AtVec(i))
	}

	tT := ocp.Transpose(tMat)
	hNew := ocp.MatMul(tT, ocp.MatMul(h, tMat))

	hs := ocp.MulMatVec(h, s)
	gNew := ocp.MulMatVec(tT, ocp.AddVec(hs, g))

	cNew := c + 0.5*dot(s, hs) + dot(g, s)

	return hNew, gNew, cNew
}

// reduceDynamics reparameterizes a node's discretized dynamics over the
// reduced free input uTilde, substituting the same
// u = f + dfdx*x + dfdu*uTilde used by projectCostBlock into
// x_{i+1} = A*x_i + B*u_i + bias:
// A' = A + B*dfdx, B' = B*dfdu, bias' = bias + B*f. Without this, the
// QP back-end would see a cost block sized over uTilde but a dynamics
// block still sized over the full u, and panic slicing Q_uu.
func reduceDynamics(dyn ocp.DynamicsBlock, f *ocp.Vector, dfdx, dfdu *ocp.Matrix) ocp.DynamicsBlock {
	aPrime := ocp.MatAdd(dyn.A, ocp.MatMul(dyn.B, dfdx))
	bPrime := ocp.MatMul(dyn.B, dfdu)
	biasPrime := ocp.AddVec(dyn.Bias, ocp.MulMatVec(dyn.B, f))
	return ocp.DynamicsBlock{A: aPrime, B: bPrime, Bias: biasPrime}
}

func dot(a, b *ocp.Vector) float64 {
	return mat.Dot(a, b)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
