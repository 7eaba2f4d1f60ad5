package equalizer

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/mimoeq"
	"github.com/wiless/vlib"
)

// Batch is an ordered set of resource elements to be equalized together.
// All REs share one config until AppendWithConfig switches the batch to
// per-RE configs. Output slot i always belongs to input slot i.
type Batch struct {
	Y       []vlib.VectorC
	H       []mimoeq.MatrixC
	Configs []Config
	shared  Config
	perRE   bool
}

// NewBatch creates an empty batch with one shared config
func NewBatch(shared Config) *Batch {
	result := new(Batch)
	result.Configs = []Config{shared}
	result.shared = shared
	return result
}

// Append adds one RE carrying the shared batch config
func (b *Batch) Append(y vlib.VectorC, h mimoeq.MatrixC) {
	b.Y = append(b.Y, y)
	b.H = append(b.H, h)
	if b.perRE {
		b.Configs = append(b.Configs, b.shared)
	}
}

// AppendWithConfig adds one RE with its own config, switching the batch to
// per-RE config mode on first use
func (b *Batch) AppendWithConfig(y vlib.VectorC, h mimoeq.MatrixC, cfg Config) {
	if !b.perRE {
		b.Configs = make([]Config, len(b.Y), len(b.Y)+1)
		for i := range b.Configs {
			b.Configs[i] = b.shared
		}
		b.perRE = true
	}
	b.Y = append(b.Y, y)
	b.H = append(b.H, h)
	b.Configs = append(b.Configs, cfg)
}

func (b *Batch) Len() int {
	return len(b.Y)
}

// ConfigAt returns the effective config of the i-th RE
func (b *Batch) ConfigAt(i int) Config {
	if !b.perRE {
		return b.Configs[0]
	}
	return b.Configs[i]
}

// Result holds the per-RE outputs of a batch run. In lenient mode Errs[i]
// records why slot i was skipped; Flagged lists the failed indices in order.
type Result struct {
	XHat     []vlib.VectorC
	NoiseVar []vlib.VectorF
	CSI      []vlib.VectorF
	Errs     []error
	Flagged  vlib.VectorI
}

func newResult(n int) *Result {
	result := new(Result)
	result.XHat = make([]vlib.VectorC, n)
	result.NoiseVar = make([]vlib.VectorF, n)
	result.CSI = make([]vlib.VectorF, n)
	result.Errs = make([]error, n)
	return result
}

// OK reports whether slot i carries a valid output
func (r *Result) OK(i int) bool {
	return r.Errs[i] == nil
}

// Reports expands the run into per-RE per-layer link reports, skipping flagged slots
func (r *Result) Reports() []mimoeq.LinkReport {
	var result []mimoeq.LinkReport
	for i := range r.XHat {
		if r.Errs[i] != nil {
			continue
		}
		for t := range r.NoiseVar[i] {
			result = append(result, mimoeq.NewLinkReport(i, t, r.CSI[i][t], r.NoiseVar[i][t]))
		}
	}
	return result
}

func (r *Result) collectFlagged() {
	r.Flagged.Resize(0)
	for i, err := range r.Errs {
		if err != nil {
			r.Flagged.AppendAtEnd(i)
		}
	}
}

// Run equalizes the batch sequentially in strict mode, aborting on the first
// failing RE
func (b *Batch) Run() (*Result, error) {
	result := newResult(b.Len())
	for i := 0; i < b.Len(); i++ {
		xhat, nvar, csi, err := equalizeRE(b.Y[i], b.H[i], b.ConfigAt(i))
		if err != nil {
			return nil, fmt.Errorf("equalizer: RE %d: %w", i, err)
		}
		result.XHat[i], result.NoiseVar[i], result.CSI[i] = xhat, nvar, csi
	}
	return result, nil
}

// RunLenient equalizes every RE, collecting a per-RE status instead of
// aborting, so a single bad channel estimate does not sink the batch
func (b *Batch) RunLenient() *Result {
	result := newResult(b.Len())
	for i := 0; i < b.Len(); i++ {
		xhat, nvar, csi, err := equalizeRE(b.Y[i], b.H[i], b.ConfigAt(i))
		if err != nil {
			result.Errs[i] = err
			log.Debugf("equalizer: RE %d flagged : %v", i, err)
			continue
		}
		result.XHat[i], result.NoiseVar[i], result.CSI[i] = xhat, nvar, csi
	}
	result.collectFlagged()
	return result
}

// RunParallel distributes the REs of the batch over nworkers goroutines.
// Each output slot is written by exactly one worker, so the result is
// identical to a sequential Run; strict-mode failure reports the lowest
// failing RE index for determinism.
func (b *Batch) RunParallel(nworkers int) (*Result, error) {
	n := b.Len()
	if nworkers < 1 {
		nworkers = 1
	}
	if nworkers > n {
		nworkers = n
	}
	result := newResult(n)

	var wg sync.WaitGroup
	for w := 0; w < nworkers; w++ {
		wg.Add(1)
		go func(first int) {
			defer wg.Done()
			for i := first; i < n; i += nworkers {
				xhat, nvar, csi, err := equalizeRE(b.Y[i], b.H[i], b.ConfigAt(i))
				if err != nil {
					result.Errs[i] = err
					continue
				}
				result.XHat[i], result.NoiseVar[i], result.CSI[i] = xhat, nvar, csi
			}
		}(w)
	}
	wg.Wait()

	for i, err := range result.Errs {
		if err != nil {
			return nil, fmt.Errorf("equalizer: RE %d: %w", i, err)
		}
	}
	return result, nil
}
