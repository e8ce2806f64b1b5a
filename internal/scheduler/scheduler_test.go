package scheduler

import (
	"testing"

	"github.com/martypc-go/martypc/internal/bus"
	"github.com/martypc-go/martypc/internal/cpu"
	"github.com/martypc-go/martypc/internal/devices/pic"
	"github.com/martypc-go/martypc/internal/devices/pit"
	"github.com/martypc-go/martypc/internal/memmap"
)

func newTestScheduler(t *testing.T) (*Scheduler, *cpu.CPU) {
	t.Helper()
	b := bus.New()
	b.Mem.InstallRange(memmap.Range{Start: 0, End: memmap.AddressMask, Kind: memmap.KindRAM})
	c := cpu.New(b, cpu.Variant8088, cpu.Model5150)
	s := New(b, c)
	s.PIT = pit.New()
	master := pic.New("master")
	master.WriteIO(0x20, 0x11)
	master.WriteIO(0x21, 0x08)
	master.WriteIO(0x21, 0x01)
	master.WriteIO(0x21, 0x00) // unmask everything
	s.PICs = []*pic.PIC{master}
	return s, c
}

// TestTimerTickRaisesAndSyncsIRQ0 exercises the documented PIT -> PIC ->
// CPU.SetINTR path (spec §4.3): once channel 0 counts down, the scheduler's
// fixed tick order must both latch the IRQ into the PIC and reflect it onto
// the CPU's INTR line within the same tickDevices call.
func TestTimerTickRaisesAndSyncsIRQ0(t *testing.T) {
	s, c := newTestScheduler(t)
	s.PIT.WriteIO(0x43, 0x36) // channel 0, LOHI, mode 3
	s.PIT.WriteIO(0x40, 0x04) // divisor 4: short period so the test is cheap
	s.PIT.WriteIO(0x40, 0x00)

	for i := 0; i < 16; i++ {
		s.tickDevices(1)
		if c.GetINTR() {
			return
		}
	}
	t.Fatalf("CPU.INTR never asserted after PIT channel 0 should have fired IRQ0")
}

func TestAcknowledgeIRQRoutesThroughPICs(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.PICs[0].RaiseIRQ(0)

	vec := s.acknowledgeIRQ()
	if vec != 0x08 {
		t.Fatalf("acknowledgeIRQ() = %02X, want 08 (vectorBase+IRQ0)", vec)
	}
}
