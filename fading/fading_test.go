package fading

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/wiless/mimoeq/demod"
	"github.com/wiless/mimoeq/equalizer"
)

func TestRayleighUnitPower(t *testing.T) {
	rand.Seed(0)
	power := 0.0
	n := 0
	for trial := 0; trial < 500; trial++ {
		h := Rayleigh(4, 2)
		for _, row := range h {
			for _, v := range row {
				power += real(v)*real(v) + imag(v)*imag(v)
				n++
			}
		}
	}
	power /= float64(n)
	if math.Abs(power-1.0) > 0.1 {
		t.Errorf("mean element power %g want ~1", power)
	}
}

func TestRicianConcentratesWithK(t *testing.T) {
	rand.Seed(0)
	const K = 100.0
	nu, _ := nuSigma(K)
	spread := 0.0
	n := 0
	for trial := 0; trial < 200; trial++ {
		h := Rician(2, 2, K)
		for _, row := range h {
			for _, v := range row {
				spread += cmplx.Abs(v - complex(nu, 0))
				n++
			}
		}
	}
	spread /= float64(n)
	if spread > 0.2 {
		t.Errorf("K=%v: mean deviation from LOS %g, expected strongly concentrated", K, spread)
	}
}

func TestSynthesizeShapes(t *testing.T) {
	rand.Seed(1)
	const nre, r, tl = 30, 4, 2
	b, truth, err := Synthesize(nre, r, tl, equalizer.MMSE, demod.QPSK, 20, 1.0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != nre {
		t.Fatalf("batch len %d want %d", b.Len(), nre)
	}
	if len(truth.Symbols) != nre || len(truth.Bits) != nre*tl*demod.QPSK.BitsPerSymbol() {
		t.Fatalf("truth sizes %d / %d", len(truth.Symbols), len(truth.Bits))
	}
	for i := 0; i < nre; i++ {
		if b.Y[i].Size() != r || b.H[i].NRows() != r || b.H[i].NCols() != tl {
			t.Fatalf("RE %d dims y=%d H=%dx%d", i, b.Y[i].Size(), b.H[i].NRows(), b.H[i].NCols())
		}
	}
}

func TestSynthesizedBatchEqualizes(t *testing.T) {
	rand.Seed(2)
	// high SNR, more ports than layers: symbols should come back cleanly
	b, truth, err := Synthesize(100, 4, 2, equalizer.MMSE, demod.QPSK, 35, 1.0, 0)
	if err != nil {
		t.Fatal(err)
	}
	res, err := b.Run()
	if err != nil {
		t.Fatal(err)
	}
	bad := 0
	for i := range res.XHat {
		for j := range res.XHat[i] {
			if cmplx.Abs(res.XHat[i][j]-truth.Symbols[i][j]) > 0.5 {
				bad++
			}
		}
	}
	if bad > 2 {
		t.Errorf("%d of %d symbols far from truth at 35 dB", bad, 200)
	}
}
