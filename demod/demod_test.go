package demod

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/wiless/vlib"
)

func TestConstellationPower(t *testing.T) {
	for _, s := range []Scheme{BPSK, QPSK, QAM16} {
		points, err := Constellation(s)
		if err != nil {
			t.Fatal(err)
		}
		if points.Size() != 1<<uint(s.BitsPerSymbol()) {
			t.Fatalf("%v: %d points", s, points.Size())
		}
		power := 0.0
		for _, p := range points {
			power += real(p)*real(p) + imag(p)*imag(p)
		}
		power /= float64(points.Size())
		if math.Abs(power-1.0) > 1e-12 {
			t.Errorf("%v: average power %g want 1", s, power)
		}
	}
}

func TestModulateDemodulateRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	for _, s := range []Scheme{BPSK, QPSK, QAM16} {
		n := 40 * s.BitsPerSymbol()
		bits := make([]byte, n)
		for i := range bits {
			bits[i] = byte(rng.Intn(2))
		}
		syms, err := Modulate(bits, s)
		if err != nil {
			t.Fatal(err)
		}

		// light noise, well inside the decision regions
		nvar := vlib.NewVectorF(syms.Size())
		for i := range syms {
			syms[i] += complex(rng.NormFloat64(), rng.NormFloat64()) * complex(0.02, 0)
			nvar[i] = 0.01
		}

		llr, err := Soft(syms, nvar, s)
		if err != nil {
			t.Fatal(err)
		}
		got := HardBits(llr)
		for i := range bits {
			if got[i] != bits[i] {
				t.Errorf("%v bit %d: got %d want %d", s, i, got[i], bits[i])
			}
		}
	}
}

func TestLLRScalesWithNoiseVar(t *testing.T) {
	x := vlib.VectorC{complex(0.9/math.Sqrt2, 0.9/math.Sqrt2)}
	llrA, err := Soft(x, vlib.VectorF{0.1}, QPSK)
	if err != nil {
		t.Fatal(err)
	}
	llrB, err := Soft(x, vlib.VectorF{0.2}, QPSK)
	if err != nil {
		t.Fatal(err)
	}
	for k := range llrA {
		if math.Abs(llrA[k]-2*llrB[k]) > 1e-12 {
			t.Errorf("bit %d: llr %g did not halve to %g", k, llrA[k], llrB[k])
		}
	}
	if llrA[0] <= 0 || llrA[1] <= 0 {
		t.Errorf("first-quadrant QPSK point should favour bits 00, got %v", llrA)
	}
}

func TestQAM16GrayNeighbours(t *testing.T) {
	points, _ := Constellation(QAM16)
	// gray mapping: nearest neighbours differ in exactly one bit
	for a := 0; a < points.Size(); a++ {
		best := -1
		bestD := math.Inf(1)
		for b := 0; b < points.Size(); b++ {
			if a == b {
				continue
			}
			d := cmplx.Abs(points[a] - points[b])
			if d < bestD {
				bestD = d
				best = b
			}
		}
		diff := a ^ best
		if diff&(diff-1) != 0 {
			t.Errorf("points %04b and %04b are nearest neighbours but differ in several bits", a, best)
		}
	}
}

func TestSoftErrors(t *testing.T) {
	x := vlib.VectorC{1}
	if _, err := Soft(x, vlib.VectorF{0}, QPSK); err != ErrInvalidNoiseVar {
		t.Errorf("zero nvar: got %v", err)
	}
	if _, err := Soft(x, vlib.VectorF{0.1, 0.1}, QPSK); err != ErrLengthMismatch {
		t.Errorf("length mismatch: got %v", err)
	}
	if _, err := Modulate([]byte{1}, QPSK); err != ErrBitLength {
		t.Errorf("odd bits: got %v", err)
	}
	if _, err := Soft(x, vlib.VectorF{0.1}, Scheme(99)); err != ErrUnsupportedScheme {
		t.Errorf("bad scheme: got %v", err)
	}
}
