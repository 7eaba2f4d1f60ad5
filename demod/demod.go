// Package demod soft-demodulates equalized symbols into log-likelihood
// ratios, scaling by the per-layer post-equalization noise variance reported
// by the equalizer. Positive LLR favours bit 0.
package demod

import (
	"errors"
	"math"

	"github.com/wiless/vlib"
)

type Scheme int

const (
	BPSK Scheme = iota
	QPSK
	QAM16
)

var SchemeNames = [...]string{
	"BPSK",
	"QPSK",
	"16QAM",
}

func (s Scheme) String() string {
	if int(s) >= len(SchemeNames) || s < 0 {
		return "Unknown!!"
	}
	return SchemeNames[s]
}

// BitsPerSymbol returns the modulation order in bits
func (s Scheme) BitsPerSymbol() int {
	switch s {
	case BPSK:
		return 1
	case QPSK:
		return 2
	case QAM16:
		return 4
	}
	return 0
}

var (
	ErrUnsupportedScheme = errors.New("demod: unsupported modulation scheme")
	ErrInvalidNoiseVar   = errors.New("demod: noise variance must be positive")
	ErrBitLength         = errors.New("demod: bit count not a multiple of bits per symbol")
	ErrLengthMismatch    = errors.New("demod: symbol and noise variance lengths differ")
)

// mapSymbol maps bits (MSB first) to the unit-average-power gray-coded point,
// following the NR bit-to-level convention: I from even bit positions, Q from odd.
func mapSymbol(bits []byte, s Scheme) complex128 {
	sgn := func(b byte) float64 { return 1.0 - 2.0*float64(b) }
	switch s {
	case BPSK:
		a := sgn(bits[0]) / math.Sqrt2
		return complex(a, a)
	case QPSK:
		return complex(sgn(bits[0])/math.Sqrt2, sgn(bits[1])/math.Sqrt2)
	case QAM16:
		i := sgn(bits[0]) * (2.0 - sgn(bits[2]))
		q := sgn(bits[1]) * (2.0 - sgn(bits[3]))
		return complex(i/math.Sqrt(10), q/math.Sqrt(10))
	}
	return 0
}

// Constellation returns the 2^m labeled points, point index encoding its bits
// MSB first
func Constellation(s Scheme) (vlib.VectorC, error) {
	m := s.BitsPerSymbol()
	if m == 0 {
		return nil, ErrUnsupportedScheme
	}
	n := 1 << uint(m)
	result := vlib.NewVectorC(n)
	bits := make([]byte, m)
	for idx := 0; idx < n; idx++ {
		for k := 0; k < m; k++ {
			bits[k] = byte(idx>>uint(m-1-k)) & 1
		}
		result[idx] = mapSymbol(bits, s)
	}
	return result, nil
}

// Modulate maps a bit stream onto constellation symbols
func Modulate(bits []byte, s Scheme) (vlib.VectorC, error) {
	m := s.BitsPerSymbol()
	if m == 0 {
		return nil, ErrUnsupportedScheme
	}
	if len(bits)%m != 0 {
		return nil, ErrBitLength
	}
	result := vlib.NewVectorC(len(bits) / m)
	for i := range result {
		result[i] = mapSymbol(bits[i*m:(i+1)*m], s)
	}
	return result, nil
}

// Soft computes max-log LLRs for every bit of every equalized symbol, scaled
// by that symbol's noise variance. Output length is len(xhat)*BitsPerSymbol.
func Soft(xhat vlib.VectorC, nvar vlib.VectorF, s Scheme) (vlib.VectorF, error) {
	m := s.BitsPerSymbol()
	if m == 0 {
		return nil, ErrUnsupportedScheme
	}
	if xhat.Size() != nvar.Size() {
		return nil, ErrLengthMismatch
	}
	points, _ := Constellation(s)

	result := vlib.NewVectorF(xhat.Size() * m)
	for i, x := range xhat {
		if nvar[i] <= 0 {
			return nil, ErrInvalidNoiseVar
		}
		for k := 0; k < m; k++ {
			min0 := math.Inf(1)
			min1 := math.Inf(1)
			for idx, p := range points {
				dr := real(x) - real(p)
				di := imag(x) - imag(p)
				d2 := dr*dr + di*di
				if (idx>>uint(m-1-k))&1 == 0 {
					if d2 < min0 {
						min0 = d2
					}
				} else {
					if d2 < min1 {
						min1 = d2
					}
				}
			}
			result[i*m+k] = (min1 - min0) / nvar[i]
		}
	}
	return result, nil
}

// HardBits slices the LLRs at zero
func HardBits(llr vlib.VectorF) []byte {
	result := make([]byte, llr.Size())
	for i, l := range llr {
		if l < 0 {
			result[i] = 1
		}
	}
	return result
}
