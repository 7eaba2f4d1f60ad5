package mimoeq

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	CM "github.com/wiless/channelmodel"
	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/stat"
)

// WSystem captures the radio settings from which batch noise levels are derived
type WSystem struct {
	FrequencyGHz float64
	BandwidthMHz float64
	NoisePSDdBm  float64
	TxPowerDBm   float64
}

var DEFAULTERR_PL float64 = 999999

// PLModel is the propagation-model surface the link budget consumes. The
// 3GPP models of github.com/wiless/channelmodel satisfy it, as does the
// local pathloss package.
type PLModel interface {
	IsSupported(fGHz float64) bool
	Env() string
	PLbetween(src, dest vlib.Location3D) (plDb float64, isLOS bool, err error)
}

var _ PLModel = CM.PLModel(nil)

func NewWSystem() WSystem {
	var result WSystem
	result.FrequencyGHz = 3.5
	result.BandwidthMHz = 10.0
	result.NoisePSDdBm = -174.0
	result.TxPowerDBm = 23.0
	return result
}

// N0 returns the integrated thermal noise power in dBm for the system bandwidth
func (w WSystem) N0() float64 {
	return w.NoisePSDdBm + vlib.Db(w.BandwidthMHz*1e6)
}

// SNRFromModel evaluates the link SNR in dB for a tx-rx cut through the given
// pathloss model, the way the link-level simulator sets up a drop
func (w WSystem) SNRFromModel(model PLModel, txloc, rxloc vlib.Location3D) (float64, error) {
	if !model.IsSupported(w.FrequencyGHz) {
		return -DEFAULTERR_PL, fmt.Errorf("mimoeq: PL model %s does not support %v GHz", model.Env(), w.FrequencyGHz)
	}
	plDb, _, plerr := model.PLbetween(txloc, rxloc)
	if plerr != nil {
		log.Infof("SNRFromModel : (%v,%v) %v > %v", txloc, rxloc, plDb, plerr)
		plDb = DEFAULTERR_PL
	}
	return w.TxPowerDBm - plDb - w.N0(), nil
}

// SNRToNoiseVar converts a symbol-domain SNR in dB to the linear noise variance
// assumed by the equalizer for unit-power reference symbols
func SNRToNoiseVar(snrDb float64) float64 {
	return vlib.InvDb(-snrDb)
}

// ReportSummary is the batch-level digest of per-layer link reports
type ReportSummary struct {
	NLayers    int
	NReports   int
	MeanSINRdB float64
	StdSINRdB  float64
	MeanCSI    float64
	MinSINRdB  float64
}

// Summarize folds the per-RE per-layer reports of a batch into distribution statistics
func Summarize(reports []LinkReport) ReportSummary {
	var result ReportSummary
	if len(reports) == 0 {
		return result
	}
	sinrs := vlib.NewVectorF(len(reports))
	csis := vlib.NewVectorF(len(reports))
	nlayers := 0
	result.MinSINRdB = reports[0].SINRdB
	for i, r := range reports {
		sinrs[i] = r.SINRdB
		csis[i] = r.CSI
		if r.Layer+1 > nlayers {
			nlayers = r.Layer + 1
		}
		if r.SINRdB < result.MinSINRdB {
			result.MinSINRdB = r.SINRdB
		}
	}
	result.NLayers = nlayers
	result.NReports = len(reports)
	result.MeanSINRdB, result.StdSINRdB = stat.MeanStdDev(sinrs, nil)
	result.MeanCSI = stat.Mean(csis, nil)
	return result
}
