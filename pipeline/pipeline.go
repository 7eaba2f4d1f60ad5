// Package pipeline runs the transmit -> fade -> equalize -> demodulate chain
// as streaming goroutine stages, slots fanned out over a worker pool.
package pipeline

import (
	"math/rand"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/mimoeq"
	"github.com/wiless/mimoeq/demod"
	"github.com/wiless/mimoeq/equalizer"
	"github.com/wiless/mimoeq/fading"
	"github.com/wiless/vlib"
)

// Setting fixes one pipeline run
type Setting struct {
	NSlots     int
	NREPerSlot int
	NRxPorts   int
	NLayers    int
	Kind       equalizer.Kind
	Scheme     demod.Scheme
	SNRdB      float64
	TxScaling  float64
	RicianK    float64
	NWorkers   int
}

func NewSetting() Setting {
	var result Setting
	result.NSlots = 10
	result.NREPerSlot = 128
	result.NRxPorts = 4
	result.NLayers = 2
	result.Kind = equalizer.MMSE
	result.Scheme = demod.QPSK
	result.SNRdB = 20
	result.TxScaling = 1.0
	result.NWorkers = 4
	return result
}

// NoiseVar returns the AWGN variance implied by the SNR and tx scaling
func (s Setting) NoiseVar() float64 {
	return s.TxScaling * s.TxScaling * mimoeq.SNRToNoiseVar(s.SNRdB)
}

// Slot is one transmission unit moving through the pipeline
type Slot struct {
	ID      int
	Bits    []byte         // layer-major per RE
	Symbols []vlib.VectorC // per RE, one symbol per layer
}

// RxSlot is the processed counterpart of a Slot
type RxSlot struct {
	ID      int
	TxBits  []byte
	RxBits  []byte
	Reports []mimoeq.LinkReport
	Flagged vlib.VectorI
}

// Source generates random slots and writes them to its output pin
type Source struct {
	nid     int
	setting Setting
	sch     chan Slot
	wg      *sync.WaitGroup
}

func NewSource(id int, setting Setting) *Source {
	result := new(Source)
	result.nid = id
	result.setting = setting
	result.sch = make(chan Slot, 1)
	return result
}

func (s *Source) GetID() int {
	return s.nid
}

func (s *Source) GetChannel() chan Slot {
	return s.sch
}

func (s *Source) SetWaitGroup(wg *sync.WaitGroup) {
	s.wg = wg
}

// StartTransmit emits NSlots random slots and closes the pin
func (s *Source) StartTransmit() {
	if s.sch == nil || s.wg == nil {
		log.Panicln("Source Not Initialized or No WaitGroup set !!")
	}
	bps := s.setting.Scheme.BitsPerSymbol()
	nbits := s.setting.NLayers * bps
	for i := 0; i < s.setting.NSlots; i++ {
		var slot Slot
		slot.ID = i
		for re := 0; re < s.setting.NREPerSlot; re++ {
			bits := make([]byte, nbits)
			for k := range bits {
				bits[k] = byte(rand.Intn(2))
			}
			x, err := demod.Modulate(bits, s.setting.Scheme)
			if err != nil {
				log.Panicln("Source: ", err)
			}
			slot.Bits = append(slot.Bits, bits...)
			slot.Symbols = append(slot.Symbols, x)
		}
		log.Debugf("Source %d : Writing slot %d (%d REs) into pin", s.nid, i, s.setting.NREPerSlot)
		s.sch <- slot
	}
	close(s.sch)
	s.wg.Done()
}

// Processor fades, equalizes and demodulates slots pulled from in, fanning
// slots out over NWorkers goroutines. Each slot is written once to out.
type Processor struct {
	setting Setting
}

func NewProcessor(setting Setting) *Processor {
	result := new(Processor)
	result.setting = setting
	return result
}

func (p *Processor) Start(in chan Slot, out chan RxSlot) {
	nworkers := p.setting.NWorkers
	if nworkers < 1 {
		nworkers = 1
	}
	var wg sync.WaitGroup
	for w := 0; w < nworkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range in {
				out <- p.processSlot(slot)
			}
		}()
	}
	wg.Wait()
	close(out)
}

func (p *Processor) processSlot(slot Slot) RxSlot {
	set := p.setting
	cfg := equalizer.NewConfig(set.Kind, set.NoiseVar())
	cfg.TxScaling = set.TxScaling

	b := equalizer.NewBatch(cfg)
	beta := complex(set.TxScaling, 0)
	for _, x := range slot.Symbols {
		h := fading.Rician(set.NRxPorts, set.NLayers, set.RicianK)
		tx := vlib.NewVectorC(set.NLayers)
		for j := range tx {
			tx[j] = x[j] * beta
		}
		y := h.MulVec(tx)
		noise := vlib.RandNCVec(set.NRxPorts, cfg.NoiseVar)
		for r := range y {
			y[r] += noise[r]
		}
		b.Append(y, h)
	}

	res := b.RunLenient()

	var rx RxSlot
	rx.ID = slot.ID
	rx.TxBits = slot.Bits
	rx.Flagged = res.Flagged
	rx.Reports = res.Reports()

	nbits := set.NLayers * set.Scheme.BitsPerSymbol()
	rx.RxBits = make([]byte, 0, len(slot.Bits))
	for i := 0; i < b.Len(); i++ {
		if !res.OK(i) {
			// erased RE, substitute zeros and let the BER account for it
			rx.RxBits = append(rx.RxBits, make([]byte, nbits)...)
			continue
		}
		llr, err := demod.Soft(res.XHat[i], res.NoiseVar[i], set.Scheme)
		if err != nil {
			log.Panicln("Processor: ", err)
		}
		rx.RxBits = append(rx.RxBits, demod.HardBits(llr)...)
	}
	log.Debugf("Processor : slot %d done, %d REs flagged", slot.ID, rx.Flagged.Size())
	return rx
}

// Sink accumulates processed slots into run statistics
type Sink struct {
	nid       int
	wg        *sync.WaitGroup
	BitErrors int
	TotalBits int
	NFlagged  int
	SlotsSeen int
	reports   []mimoeq.LinkReport
}

func NewSink(id int) *Sink {
	result := new(Sink)
	result.nid = id
	return result
}

func (s *Sink) GetID() int {
	return s.nid
}

func (s *Sink) SetWaitGroup(wg *sync.WaitGroup) {
	s.wg = wg
}

func (s *Sink) StartReceive(rxch chan RxSlot) {
	for rx := range rxch {
		for k := range rx.TxBits {
			if rx.TxBits[k] != rx.RxBits[k] {
				s.BitErrors++
			}
		}
		s.TotalBits += len(rx.TxBits)
		s.NFlagged += rx.Flagged.Size()
		s.SlotsSeen++
		s.reports = append(s.reports, rx.Reports...)
		log.Debugf("Sink %d : slot %d accumulated", s.nid, rx.ID)
	}
	if s.wg != nil {
		s.wg.Done()
	}
}

// BER returns the accumulated bit error rate
func (s *Sink) BER() float64 {
	if s.TotalBits == 0 {
		return 0
	}
	return float64(s.BitErrors) / float64(s.TotalBits)
}

// Summary digests all accumulated per-layer reports
func (s *Sink) Summary() mimoeq.ReportSummary {
	return mimoeq.Summarize(s.reports)
}

// Stats is the digest of one pipeline run
type Stats struct {
	BER      float64
	NFlagged int
	NSlots   int
	Report   mimoeq.ReportSummary
}

// Run wires source -> processor -> sink and blocks until the stream drains
func Run(setting Setting) Stats {
	src := NewSource(0, setting)
	proc := NewProcessor(setting)
	sink := NewSink(0)

	out := make(chan RxSlot, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	src.SetWaitGroup(&wg)
	sink.SetWaitGroup(&wg)

	log.Infof("pipeline: %d slots of %d REs, %dx%d %v %v @ %.1f dB",
		setting.NSlots, setting.NREPerSlot, setting.NRxPorts, setting.NLayers,
		setting.Kind, setting.Scheme, setting.SNRdB)

	go src.StartTransmit()
	go proc.Start(src.GetChannel(), out)
	go sink.StartReceive(out)
	wg.Wait()

	var result Stats
	result.BER = sink.BER()
	result.NFlagged = sink.NFlagged
	result.NSlots = sink.SlotsSeen
	result.Report = sink.Summary()
	log.Infof("pipeline: done, BER=%g flagged=%d", result.BER, result.NFlagged)
	return result
}
