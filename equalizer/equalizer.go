// Package equalizer implements per-resource-element linear MIMO equalization
// (MMSE and ZF) with per-layer post-equalization noise variances, the quantity
// downstream soft demodulation scales its LLRs with.
package equalizer

import (
	"errors"

	"github.com/wiless/mimoeq"
	"github.com/wiless/vlib"
)

// Kind selects the regularization used when forming the per-RE filter
type Kind int

const (
	MMSE Kind = iota
	ZF
)

var KindNames = [...]string{
	"MMSE",
	"ZF",
}

func (k Kind) String() string {
	if int(k) >= len(KindNames) || k < 0 {
		return "Unknown!!"
	}
	return KindNames[k]
}

var (
	ErrInvalidNoiseVariance = errors.New("equalizer: noise variance must be positive")
	ErrInvalidScaling       = errors.New("equalizer: tx scaling must be positive")
	ErrDimensionMismatch    = errors.New("equalizer: dimension mismatch between y and H")
	ErrSingularMatrix       = errors.New("equalizer: singular or near-singular system matrix")
	ErrUnknownKind          = errors.New("equalizer: unknown equalizer kind")
)

// Config fixes the equalizer behaviour for one RE or a whole batch.
// NoiseVar is the per-port thermal noise variance, TxScaling is the known
// amplitude ratio of data symbols to the reference symbols the channel
// estimate was normalized against.
type Config struct {
	Kind      Kind
	NoiseVar  float64
	TxScaling float64
}

// NewConfig returns a config with unit tx scaling
func NewConfig(kind Kind, noiseVar float64) Config {
	var result Config
	result.Kind = kind
	result.NoiseVar = noiseVar
	result.TxScaling = 1.0
	return result
}

func (c Config) validate() error {
	if c.Kind < 0 || int(c.Kind) >= len(KindNames) {
		return ErrUnknownKind
	}
	if c.NoiseVar <= 0 {
		return ErrInvalidNoiseVariance
	}
	if c.TxScaling <= 0 {
		return ErrInvalidScaling
	}
	return nil
}

// Equalize estimates the transmitted symbol per layer for a single resource
// element and reports the per-layer effective noise variance after combining.
//
// y holds one received sample per Rx port, h is the Rx-port x Tx-layer channel
// estimate. The MMSE output is bias-compensated per layer by its CSI so that
// it converges to the ZF output as the noise variance vanishes; the ZF noise
// variance is the thermal term propagated through (H'H)^-1.
func Equalize(y vlib.VectorC, h mimoeq.MatrixC, cfg Config) (vlib.VectorC, vlib.VectorF, error) {
	xhat, nvar, _, err := equalizeRE(y, h, cfg)
	return xhat, nvar, err
}

// equalizeRE additionally reports the per-layer CSI used for bias compensation
func equalizeRE(y vlib.VectorC, h mimoeq.MatrixC, cfg Config) (vlib.VectorC, vlib.VectorF, vlib.VectorF, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, nil, err
	}
	R := h.NRows()
	T := h.NCols()
	if R < 1 || T < 1 || y.Size() != R || h.IsRagged() {
		return nil, nil, nil, ErrDimensionMismatch
	}

	G := h.Gram()
	M := G.Copy()
	if cfg.Kind == MMSE {
		sigma2 := complex(cfg.NoiseVar, 0)
		for t := 0; t < T; t++ {
			M[t][t] += sigma2
		}
	}

	chol, err := factorize(M)
	if err != nil {
		return nil, nil, nil, err
	}

	// z = M^-1 H'y , the raw combined output
	z := chol.SolveVec(h.HermVec(y))
	// d_t = Re[(M^-1)_tt] drives both noise variances and, for MMSE, the CSI
	// through the identity W = M^-1 G = I - noiseVar*M^-1. Working from d
	// instead of 1-Re(W_tt) sidesteps the cancellation at high SNR.
	d := chol.InverseDiag()

	xhat := vlib.NewVectorC(T)
	nvar := vlib.NewVectorF(T)
	csi := vlib.NewVectorF(T)
	beta := cfg.TxScaling
	beta2 := beta * beta

	switch cfg.Kind {
	case ZF:
		for t := 0; t < T; t++ {
			xhat[t] = z[t] / complex(beta, 0)
			nvar[t] = cfg.NoiseVar * d[t] / beta2
			csi[t] = 1.0
		}
	case MMSE:
		for t := 0; t < T; t++ {
			csi[t] = 1.0 - cfg.NoiseVar*d[t]
			if csi[t] < csiMin {
				// layer effectively unobservable, e.g. a zero channel column
				return nil, nil, nil, ErrSingularMatrix
			}
			xhat[t] = z[t] / complex(beta*csi[t], 0)
			nvar[t] = cfg.NoiseVar * d[t] / (csi[t] * beta2)
		}
	}

	return xhat, nvar, csi, nil
}

// CSI returns the per-layer MMSE channel-state information for the given
// channel, without equalizing any data. For ZF configurations every layer
// reports 1.0 once the Gram matrix is verified invertible.
func CSI(h mimoeq.MatrixC, cfg Config) (vlib.VectorF, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	T := h.NCols()
	if h.NRows() < 1 || T < 1 || h.IsRagged() {
		return nil, ErrDimensionMismatch
	}
	G := h.Gram()
	M := G.Copy()
	if cfg.Kind == MMSE {
		for t := 0; t < T; t++ {
			M[t][t] += complex(cfg.NoiseVar, 0)
		}
	}
	chol, err := factorize(M)
	if err != nil {
		return nil, err
	}
	result := vlib.NewVectorF(T)
	if cfg.Kind == ZF {
		for t := 0; t < T; t++ {
			result[t] = 1.0
		}
		return result, nil
	}
	d := chol.InverseDiag()
	for t := 0; t < T; t++ {
		result[t] = 1.0 - cfg.NoiseVar*d[t]
	}
	return result, nil
}
