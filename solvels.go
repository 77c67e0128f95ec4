// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pivot magnitude below this treats the system as singular
const MIN_PIVOT = 1e-10

// Solve a small dense linear system a x = b in place using Gaussian
// elimination with partial pivoting.
// - a is n x n, b is n x 1. Both are overwritten.
// - A pivot below MIN_PIVOT reports a singular system: the zero vector
//   and ok=false are returned instead of an error, so an ill-conditioned
//   step degrades to a no-op correction rather than a failure.
func SolveGauss(a [][]float64, b []float64) (x []float64, ok bool) {

	n := len(a)
	x = make([]float64, n)

	// Forward elimination
	for k := 0; k < n; k++ {

		// Partial pivoting: swap in the row with the largest |a[i][k]|
		p := k
		for i := k + 1; i < n; i++ {
			if math.Abs(a[i][k]) > math.Abs(a[p][k]) {
				p = i
			}
		}
		if p != k {
			a[k], a[p] = a[p], a[k]
			b[k], b[p] = b[p], b[k]
		}
		if math.Abs(a[k][k]) < MIN_PIVOT {
			return make([]float64, n), false
		}

		for i := k + 1; i < n; i++ {
			f := a[i][k] / a[k][k]
			for j := k; j < n; j++ {
				a[i][j] -= f * a[k][j]
			}
			b[i] -= f * b[k]
		}
	}

	// Back substitution
	for i := n - 1; i >= 0; i-- {
		s := b[i]
		for j := i + 1; j < n; j++ {
			s -= a[i][j] * x[j]
		}
		x[i] = s / a[i][i]
	}

	return x, true
}

// Solve the observation equation G dx = dr in the least squares sense
// via the normal equations
// - (G^t G) dx = G^t dr
// - The products are formed with gonum, the 3x3 (or nx x nx) system is
//   solved with SolveGauss. ok=false means the normal matrix was singular
//   and dx is the zero vector.
func SolveNormal(G mat.Matrix, dr mat.Vector) (dx []float64, ok bool) {

	_, nx := G.Dims()

	// A (G^t G)
	var A mat.Dense
	A.Mul(G.T(), G)

	// b (G^t dr)
	var b mat.VecDense
	b.MulVec(G.T(), dr)

	if DBG_ >= 4 {
		PrintA("A=\n")
		PrintMat(&A)
		PrintA("b=\n")
		PrintMat(&b)
	}

	a2 := make([][]float64, nx)
	b2 := make([]float64, nx)
	for i := 0; i < nx; i++ {
		a2[i] = make([]float64, nx)
		for j := 0; j < nx; j++ {
			a2[i][j] = A.At(i, j)
		}
		b2[i] = b.AtVec(i)
	}

	return SolveGauss(a2, b2)
}
