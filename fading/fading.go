// Package fading draws random MIMO channel realizations and synthesizes
// equalizer batches with known transmitted symbols, for tests, examples and
// the streaming pipeline.
package fading

import (
	"math"
	"math/rand"

	"github.com/wiless/mimoeq"
	"github.com/wiless/mimoeq/demod"
	"github.com/wiless/mimoeq/equalizer"
	"github.com/wiless/vlib"
)

// Rayleigh draws an r x t channel with iid CN(0,1) entries
func Rayleigh(r, t int) mimoeq.MatrixC {
	var h mimoeq.MatrixC
	scale := math.Sqrt(0.5)
	for i := 0; i < r; i++ {
		row := vlib.NewVectorC(t)
		for j := 0; j < t; j++ {
			row[j] = complex(scale*rand.NormFloat64(), scale*rand.NormFloat64())
		}
		h = h.AppendRow(row)
	}
	return h
}

// nuSigma splits unit power between the LOS and scattered components for a
// linear K-factor
func nuSigma(K float64) (float64, float64) {
	sigma := math.Sqrt(1 / (2 * (K + 1)))
	nu := math.Sqrt(K / (K + 1))
	return nu, sigma
}

// Rician draws an r x t channel with unit-power Rician entries of linear
// K-factor K. K=0 reduces to Rayleigh. The scattered part is a Rayleigh
// draw rescaled to variance 2*sigma², the LOS part a constant offset.
func Rician(r, t int, K float64) mimoeq.MatrixC {
	nu, sigma := nuSigma(K)
	h := Rayleigh(r, t).Scale(complex(sigma*math.Sqrt2, 0))
	los := complex(nu, 0)
	for i := range h {
		for j := range h[i] {
			h[i][j] += los
		}
	}
	return h
}

// Truth carries the transmitted ground truth of a synthesized batch,
// layer-major per RE, for BER and MSE accounting downstream.
type Truth struct {
	Bits    []byte
	Symbols []vlib.VectorC
}

// Synthesize builds an nre-element batch of t-layer transmissions over r Rx
// ports. Symbols are drawn from the scheme's constellation, scaled by beta and
// sent through fresh Rician(K) channels with AWGN set so the per-layer SNR at
// a unit channel is snrDb. The returned batch carries a single shared config.
func Synthesize(nre, r, t int, kind equalizer.Kind, scheme demod.Scheme, snrDb, beta, K float64) (*equalizer.Batch, *Truth, error) {
	noiseVar := beta * beta * mimoeq.SNRToNoiseVar(snrDb)
	cfg := equalizer.NewConfig(kind, noiseVar)
	cfg.TxScaling = beta

	b := equalizer.NewBatch(cfg)
	truth := new(Truth)
	bps := scheme.BitsPerSymbol()

	for i := 0; i < nre; i++ {
		bits := make([]byte, t*bps)
		for k := range bits {
			bits[k] = byte(rand.Intn(2))
		}
		x, err := demod.Modulate(bits, scheme)
		if err != nil {
			return nil, nil, err
		}

		h := Rician(r, t, K)
		tx := vlib.NewVectorC(t)
		for j := 0; j < t; j++ {
			tx[j] = x[j] * complex(beta, 0)
		}
		y := h.MulVec(tx)
		noise := vlib.RandNCVec(r, noiseVar)
		for p := 0; p < r; p++ {
			y[p] += noise[p]
		}

		b.Append(y, h)
		truth.Bits = append(truth.Bits, bits...)
		truth.Symbols = append(truth.Symbols, x)
	}
	return b, truth, nil
}
