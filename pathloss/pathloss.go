// Package pathloss provides simple propagation models for deriving link
// budgets, shaped after the PL model interface of github.com/wiless/channelmodel.
package pathloss

import (
	"fmt"
	"math"

	"github.com/wiless/vlib"
)

// ModelSetting carries the common knobs of the simple models
type ModelSetting struct {
	FreqGHz        float64
	CutOffDistance float64 // meters, loss saturates below this
	FGHzMin        float64
	FGHzMax        float64
}

func NewModelSetting(fGHz float64) ModelSetting {
	var result ModelSetting
	result.FreqGHz = fGHz
	result.CutOffDistance = 1.0
	result.FGHzMin = 0.4
	result.FGHzMax = 100.0
	return result
}

// FreeSpace is the free-space propagation model,
// L = 32.44 + 20log10(fMHz) + 20log10(dkm)
type FreeSpace struct {
	ModelSetting
}

func NewFreeSpace(fGHz float64) *FreeSpace {
	result := new(FreeSpace)
	result.ModelSetting = NewModelSetting(fGHz)
	return result
}

func (p *FreeSpace) Set(s ModelSetting) {
	p.ModelSetting = s
}

func (p FreeSpace) Get() ModelSetting {
	return p.ModelSetting
}

func (p *FreeSpace) Env() string {
	return "FreeSpace"
}

func (p *FreeSpace) IsSupported(fGHz float64) bool {
	return fGHz >= p.FGHzMin && fGHz <= p.FGHzMax
}

// PLbetween returns the free-space loss in dB between two locations. The
// model has no blockage geometry, so the link is always LOS. Co-located
// endpoints are an error, the caller substitutes its fallback loss.
func (p *FreeSpace) PLbetween(src, dest vlib.Location3D) (plDb float64, isLOS bool, err error) {
	d := src.DistanceFrom(dest)
	if d <= 0 {
		return 0, true, fmt.Errorf("pathloss: co-located endpoints %v %v", src, dest)
	}
	if d < p.CutOffDistance {
		d = p.CutOffDistance
	}
	plDb = 32.44 + 20.0*math.Log10(p.FreqGHz*1.0e3) + 20.0*math.Log10(d/1.0e3)
	return plDb, true, nil
}
