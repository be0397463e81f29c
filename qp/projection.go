package qp

import (
	"gonum.org/v1/gonum/mat"

	"msqp/ocp"
)

// eliminate and reduceCost mirror transcribe's null-space elimination
// (see transcribe/projection.go): the adapter runs the same QR
// technique on any raw (non-projected) equality block it receives,
// since the projected and non-projected paths must produce numerically
// equivalent Riccati recursions. A rank-deficient cu is fatal here too.
func eliminate(node int, cu, cx *ocp.Matrix, feq *ocp.Vector) (f *ocp.Vector, dfdx, dfdu *ocp.Matrix, err error) {
	neq, ninput := cu.Dims()
	_, nstate := cx.Dims()

	if neq == 0 {
		return ocp.ZeroVec(ninput), ocp.NewMatrix(ninput, nstate), ocp.Identity(ninput), nil
	}

	cuT := ocp.Transpose(cu)

	var qr mat.QR
	qr.Factorize(cuT)

	rFull := mat.NewDense(ninput, neq, nil)
	qr.RTo(rFull)
	r1 := mat.DenseCopyOf(rFull.Slice(0, neq, 0, neq))

	const rankTol = 1e-10
	for i := 0; i < neq; i++ {
		v := r1.At(i, i)
		if v < 0 {
			v = -v
		}
		if v < rankTol {
			return nil, nil, nil, &ocp.RankDeficientProjection{Node: node, Rank: i, Rows: neq}
		}
	}

	qFull := mat.NewDense(ninput, ninput, nil)
	qr.QTo(qFull)
	q1 := mat.DenseCopyOf(qFull.Slice(0, ninput, 0, neq))
	q2 := mat.DenseCopyOf(qFull.Slice(0, ninput, neq, ninput))

	r1T := ocp.Transpose(r1)

	solveCols := func(rhs mat.Matrix) *ocp.Matrix {
		var y mat.Dense
		if err := y.Solve(r1T, rhs); err != nil {
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
	fMat := solveCols(negFeq)
	f = ocp.NewVector(ninput)
	for i := 0; i < ninput; i++ {
		f.SetVec(i, fMat.At(i, 0))
	}

	negCx := ocp.MatScale(-1, cx)
	dfdx = solveCols(negCx)
	dfdu = mat.DenseCopyOf(q2)

	return f, dfdx, dfdu, nil
}

func reduceCost(h *ocp.Matrix, g *ocp.Vector, c float64, nstate int, f *ocp.Vector, dfdx, dfdu *ocp.Matrix) (*ocp.Matrix, *ocp.Vector, float64) {
	ninput := f.Len()
	_, nuTilde := dfdu.Dims()

	total := nstate + ninput
	totalRed := nstate + nuTilde

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

	cNew := c + 0.5*mat.Dot(s, hs) + mat.Dot(g, s)

	return hNew, gNew, cNew
}

// reduceDynamics mirrors transcribe's reduceDynamics: substituting
// u = f + dfdx*x + dfdu*uTilde into x_{i+1} = A*x_i + B*u_i + bias gives
// A' = A + B*dfdx, B' = B*dfdu, bias' = bias + B*f. Raw equality blocks
// eliminated here must reparameterize the dynamics the same way the
// cost was just reduced by reduceCost, or the Riccati sweep below would
// factor a Q_uu sized over the full input against a cost block sized
// over uTilde.
func reduceDynamics(dyn ocp.DynamicsBlock, f *ocp.Vector, dfdx, dfdu *ocp.Matrix) ocp.DynamicsBlock {
	aPrime := ocp.MatAdd(dyn.A, ocp.MatMul(dyn.B, dfdx))
	bPrime := ocp.MatMul(dyn.B, dfdu)
	biasPrime := ocp.AddVec(dyn.Bias, ocp.MulMatVec(dyn.B, f))
	return ocp.DynamicsBlock{A: aPrime, B: bPrime, Bias: biasPrime}
}
