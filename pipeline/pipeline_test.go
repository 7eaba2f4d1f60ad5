package pipeline

import (
	"math/rand"
	"testing"

	"github.com/wiless/mimoeq/demod"
	"github.com/wiless/mimoeq/equalizer"
)

func TestHighSNRRunIsClean(t *testing.T) {
	rand.Seed(4)
	setting := NewSetting()
	setting.NSlots = 4
	setting.NREPerSlot = 64
	setting.SNRdB = 35
	setting.NWorkers = 3

	stats := Run(setting)
	if stats.NSlots != setting.NSlots {
		t.Fatalf("slots seen %d want %d", stats.NSlots, setting.NSlots)
	}
	if stats.BER > 1e-3 {
		t.Errorf("BER %g at 35 dB", stats.BER)
	}
	if stats.NFlagged != 0 {
		t.Errorf("%d REs flagged on a well-conditioned MMSE run", stats.NFlagged)
	}
	if stats.Report.NReports != setting.NSlots*setting.NREPerSlot*setting.NLayers {
		t.Errorf("report count %d", stats.Report.NReports)
	}
	if stats.Report.MeanSINRdB < 20 {
		t.Errorf("mean SINR %g dB, expected near the operating SNR", stats.Report.MeanSINRdB)
	}
}

func TestOverloadedZFIsAllFlagged(t *testing.T) {
	rand.Seed(5)
	setting := NewSetting()
	setting.NSlots = 2
	setting.NREPerSlot = 16
	setting.NRxPorts = 1
	setting.NLayers = 2 // T > R : ZF Gram is always singular
	setting.Kind = equalizer.ZF

	stats := Run(setting)
	if stats.NFlagged != setting.NSlots*setting.NREPerSlot {
		t.Errorf("flagged %d want %d", stats.NFlagged, setting.NSlots*setting.NREPerSlot)
	}
	if stats.Report.NReports != 0 {
		t.Errorf("no reports expected from fully flagged run, got %d", stats.Report.NReports)
	}
}

func TestLowOrderSchemeSweep(t *testing.T) {
	rand.Seed(6)
	for _, scheme := range []demod.Scheme{demod.BPSK, demod.QPSK, demod.QAM16} {
		setting := NewSetting()
		setting.NSlots = 2
		setting.NREPerSlot = 32
		setting.Scheme = scheme
		setting.SNRdB = 30
		stats := Run(setting)
		if got := stats.NSlots; got != setting.NSlots {
			t.Fatalf("%v: slots %d", scheme, got)
		}
		if stats.BER > 0.01 {
			t.Errorf("%v: BER %g at 30 dB", scheme, stats.BER)
		}
	}
}
