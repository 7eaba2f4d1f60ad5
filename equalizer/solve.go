package equalizer

import (
	"math"
	"math/cmplx"

	"github.com/wiless/mimoeq"
	"github.com/wiless/vlib"
)

// pivotRelTol flags a Cholesky pivot as numerically zero relative to the
// largest diagonal entry of the system matrix.
const pivotRelTol = 1e-12

// csiMin is the smallest MMSE channel-state information treated as usable.
const csiMin = 1e-9

// cholesky holds the lower-triangular factor L of a Hermitian positive
// definite M = L L'. Diagonal entries of L are real and positive.
type cholesky struct {
	l mimoeq.MatrixC
	n int
}

// factorize computes the Cholesky factor of M, rejecting the matrix as
// singular when a pivot falls below pivotRelTol times the largest diagonal.
// The ZF Gram matrix of a rank-deficient channel lands here.
func factorize(m mimoeq.MatrixC) (*cholesky, error) {
	n := m.NRows()
	maxDiag := 0.0
	for t := 0; t < n; t++ {
		if d := real(m[t][t]); d > maxDiag {
			maxDiag = d
		}
	}
	if maxDiag <= 0 {
		return nil, ErrSingularMatrix
	}
	tol := pivotRelTol * maxDiag

	l := mimoeq.NewMatrixC(n, n)
	for j := 0; j < n; j++ {
		pivot := real(m[j][j])
		for k := 0; k < j; k++ {
			ljk := l[j][k]
			pivot -= real(ljk)*real(ljk) + imag(ljk)*imag(ljk)
		}
		if pivot <= tol {
			return nil, ErrSingularMatrix
		}
		root := math.Sqrt(pivot)
		l[j][j] = complex(root, 0)
		for i := j + 1; i < n; i++ {
			s := m[i][j]
			for k := 0; k < j; k++ {
				s -= l[i][k] * cmplx.Conj(l[j][k])
			}
			l[i][j] = s / complex(root, 0)
		}
	}
	return &cholesky{l: l, n: n}, nil
}

// SolveVec solves M x = b by forward and backward substitution
func (c *cholesky) SolveVec(b vlib.VectorC) vlib.VectorC {
	n := c.n
	x := vlib.NewVectorC(n)
	// L v = b
	for i := 0; i < n; i++ {
		s := b[i]
		for k := 0; k < i; k++ {
			s -= c.l[i][k] * x[k]
		}
		x[i] = s / c.l[i][i]
	}
	// L' x = v
	for i := n - 1; i >= 0; i-- {
		s := x[i]
		for k := i + 1; k < n; k++ {
			s -= cmplx.Conj(c.l[k][i]) * x[k]
		}
		x[i] = s / c.l[i][i]
	}
	return x
}

// InverseDiag returns Re[(M^-1)_tt] for every t. With M = L L' the diagonal
// entry is the squared norm of the solution of L v = e_t, which keeps the
// result non-negative by construction.
func (c *cholesky) InverseDiag() vlib.VectorF {
	n := c.n
	result := vlib.NewVectorF(n)
	v := vlib.NewVectorC(n)
	for t := 0; t < n; t++ {
		for i := 0; i < n; i++ {
			v[i] = 0
		}
		for i := t; i < n; i++ {
			var s complex128
			if i == t {
				s = 1
			}
			for k := t; k < i; k++ {
				s -= c.l[i][k] * v[k]
			}
			v[i] = s / c.l[i][i]
		}
		acc := 0.0
		for i := t; i < n; i++ {
			acc += real(v[i])*real(v[i]) + imag(v[i])*imag(v[i])
		}
		result[t] = acc
	}
	return result
}
