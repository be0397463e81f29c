package ocp

import "gonum.org/v1/gonum/mat"

// Identity returns the n-by-n identity matrix.
func Identity(n int) *Matrix {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// MatMul returns a*b as a new matrix.
func MatMul(a, b *Matrix) *Matrix {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return out
}

// MatAdd returns a+b as a new matrix.
func MatAdd(a, b *Matrix) *Matrix {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Add(a, b)
	return out
}

// MatAddScaled returns a + f*b as a new matrix.
func MatAddScaled(a *Matrix, f float64, b *Matrix) *Matrix {
	r, c := a.Dims()
	scaled := mat.NewDense(r, c, nil)
	scaled.Scale(f, b)
	out := mat.NewDense(r, c, nil)
	out.Add(a, scaled)
	return out
}

// MatScale returns f*a as a new matrix.
func MatScale(f float64, a *Matrix) *Matrix {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(f, a)
	return out
}

// MulMatVec returns a*v as a new vector.
func MulMatVec(a *Matrix, v *Vector) *Vector {
	r, _ := a.Dims()
	out := mat.NewVecDense(r, nil)
	out.MulVec(a, v)
	return out
}

// HStack horizontally concatenates matrices of equal row count.
func HStack(mats ...*Matrix) *Matrix {
	if len(mats) == 0 {
		return mat.NewDense(0, 0, nil)
	}
	r, _ := mats[0].Dims()
	totalCols := 0
	for _, m := range mats {
		_, c := m.Dims()
		totalCols += c
	}
	out := mat.NewDense(r, totalCols, nil)
	colOff := 0
	for _, m := range mats {
		_, c := m.Dims()
		out.Slice(0, r, colOff, colOff+c).(*mat.Dense).Copy(m)
		colOff += c
	}
	return out
}

// BlockDiag2 builds a block-diagonal matrix from two square blocks, used
// to assemble stacked [x;u] Hessians from separate state/input pieces.
func BlockDiag2(a, b *Matrix) *Matrix {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar+br, ac+bc, nil)
	out.Slice(0, ar, 0, ac).(*mat.Dense).Copy(a)
	out.Slice(ar, ar+br, ac, ac+bc).(*mat.Dense).Copy(b)
	return out
}

// Transpose returns a new matrix equal to a^T.
func Transpose(a *Matrix) *Matrix {
	r, c := a.Dims()
	out := mat.NewDense(c, r, nil)
	out.Copy(a.T())
	return out
}

// StackVec concatenates vectors into one.
func StackVec(vs ...*Vector) *Vector {
	total := 0
	for _, v := range vs {
		total += v.Len()
	}
	out := mat.NewVecDense(total, nil)
	off := 0
	for _, v := range vs {
		for i := 0; i < v.Len(); i++ {
			out.SetVec(off+i, v.AtVec(i))
		}
		off += v.Len()
	}
	return out
}
