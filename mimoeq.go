// Package mimoeq holds the shared numeric types for the MIMO equalizer suite :
// complex channel matrices, per-layer link reports and small helpers around them.
package mimoeq

import (
	"math/cmplx"

	"github.com/wiless/vlib"
)

type GenericStruct map[string]interface{}

// MatrixC is a complex matrix stored row-wise, row = Rx port, column = Tx layer.
type MatrixC []vlib.VectorC

// NewMatrixC creates a rows x cols zero matrix
func NewMatrixC(rows, cols int) MatrixC {
	result := make(MatrixC, rows)
	for i := 0; i < rows; i++ {
		result[i] = vlib.NewVectorC(cols)
	}
	return result
}

func (m MatrixC) NRows() int {
	return len(m)
}

// NCols returns the number of columns of the first row
func (m MatrixC) NCols() int {
	if len(m) == 0 {
		return 0
	}
	return m[0].Size()
}

// IsRagged returns true if any row differs in length from the first row
func (m MatrixC) IsRagged() bool {
	for i := 1; i < len(m); i++ {
		if m[i].Size() != m[0].Size() {
			return true
		}
	}
	return false
}

func (m MatrixC) AppendRow(row vlib.VectorC) MatrixC {
	return append(m, row)
}

// Copy returns a deep copy, rows are freshly allocated
func (m MatrixC) Copy() MatrixC {
	result := make(MatrixC, len(m))
	for i, row := range m {
		result[i] = vlib.NewVectorC(row.Size())
		copy(result[i], row)
	}
	return result
}

func (m MatrixC) Scale(a complex128) MatrixC {
	for i := range m {
		for j := range m[i] {
			m[i][j] *= a
		}
	}
	return m
}

// Gram computes G = H'H  (conjugate-transpose times itself), size NCols x NCols
func (m MatrixC) Gram() MatrixC {
	T := m.NCols()
	G := NewMatrixC(T, T)
	for _, row := range m {
		for t := 0; t < T; t++ {
			ht := cmplx.Conj(row[t])
			for k := 0; k < T; k++ {
				G[t][k] += ht * row[k]
			}
		}
	}
	return G
}

// HermVec computes H'y, the matched-filter combining of the received vector y
func (m MatrixC) HermVec(y vlib.VectorC) vlib.VectorC {
	T := m.NCols()
	result := vlib.NewVectorC(T)
	for r, row := range m {
		yr := y[r]
		for t := 0; t < T; t++ {
			result[t] += cmplx.Conj(row[t]) * yr
		}
	}
	return result
}

// MulVec computes H*x , the noiseless channel response for a transmit vector x
func (m MatrixC) MulVec(x vlib.VectorC) vlib.VectorC {
	result := vlib.NewVectorC(len(m))
	for r, row := range m {
		for t := range row {
			result[r] += row[t] * x[t]
		}
	}
	return result
}

// LinkReport carries the per-layer output quality of one equalized resource element
type LinkReport struct {
	RE       int
	Layer    int
	CSI      float64 /// MMSE channel-state information, 1.0 for ZF
	NoiseVar float64
	SINRdB   float64
}

// NewLinkReport derives the report from a post-equalization noise variance,
// SINR refers to the unscaled (beta compensated) symbol domain
func NewLinkReport(re, layer int, csi, nvar float64) LinkReport {
	var result LinkReport
	result.RE = re
	result.Layer = layer
	result.CSI = csi
	result.NoiseVar = nvar
	if nvar > 0 {
		result.SINRdB = vlib.Db(1.0 / nvar)
	} else {
		result.SINRdB = 1000
	}
	return result
}
