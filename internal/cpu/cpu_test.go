package cpu

import (
	"testing"

	"github.com/martypc-go/martypc/internal/bus"
	"github.com/martypc-go/martypc/internal/memmap"
)

func newTestCPU(t *testing.T) (*CPU, *bus.Bus) {
	t.Helper()
	b := bus.New()
	b.Mem.InstallRange(memmap.Range{Start: 0, End: memmap.AddressMask, Kind: memmap.KindRAM})
	c := New(b, Variant8088, Model5150)
	return c, b
}

func load(b *bus.Bus, addr uint32, bytes ...byte) {
	for i, v := range bytes {
		b.Mem.ForceWrite8(addr+uint32(i), v)
	}
}

func TestSegmentWrapAround(t *testing.T) {
	c, _ := newTestCPU(t)
	c.SS = 0x1000
	if got := Linear(0x1000, 0xFFFF); got != 0x1FFFF {
		t.Fatalf("Linear(0x1000,0xFFFF) = %05X, want 0x1FFFF", got)
	}
	// SS:FFFF + 1 must wrap to SS:0000 within the segment, not carry into
	// the next segment (spec §8's documented wraparound scenario).
	c.SS, c.SP = 0x1000, 0xFFFF
	c.AX = 0x1234
	cycles := c.push16(c.AX)
	if cycles <= 0 {
		t.Fatalf("push16 returned non-positive cycles")
	}
	if c.SP != 0xFFFD {
		t.Fatalf("SP after push = %04X, want FFFD", c.SP)
	}
}

func TestDivideByZeroRaisesVector0(t *testing.T) {
	c, b := newTestCPU(t)
	c.CS, c.IP = 0x0000, 0x7C00
	// IVT vector 0 -> CS:IP = 0x9000:0x0100
	load(b, 0x0000, 0x00, 0x01, 0x00, 0x90)
	// F7 F0 = DIV AX (mod=11 reg=110 rm=000)
	load(b, 0x7C00, 0xF7, 0xF0)
	c.AX, c.DX = 0, 0
	c.Reset()
	c.CS, c.IP = 0x0000, 0x7C00
	c.biu.flush(c.linearCSIP())

	c.StepInstruction()
	if c.CS != 0x9000 || c.IP != 0x0100 {
		t.Fatalf("after DIV-by-zero CS:IP = %04X:%04X, want 9000:0100", c.CS, c.IP)
	}
}

func TestSTIDelaysInterruptSampling(t *testing.T) {
	c, b := newTestCPU(t)
	c.Reset()
	c.CS, c.IP = 0x0000, 0x7C00
	// FB = STI, 90 = NOP, 90 = NOP
	load(b, 0x7C00, 0xFB, 0x90, 0x90)
	c.biu.flush(c.linearCSIP())

	res := c.StepInstruction() // executes STI; IF becomes set, stiDelay armed
	if res.HWIRQ {
		t.Fatalf("STI step must not itself be an interrupt delivery")
	}
	if !c.getFlag(FlagIF) {
		t.Fatalf("IF not set after STI")
	}

	c.intrLine = true // device asserts INTR right after STI retires

	res = c.StepInstruction() // must execute the first NOP, not take the interrupt yet
	if res.HWIRQ {
		t.Fatalf("interrupt sampled the instruction immediately after STI; spec requires a one-instruction delay")
	}

	res = c.StepInstruction() // now the interrupt must be taken
	if !res.HWIRQ {
		t.Fatalf("interrupt was not delivered on the instruction after the STI-delay window closed")
	}
}

func TestRepStringOpTerminatesAndCanBeInterrupted(t *testing.T) {
	c, b := newTestCPU(t)
	c.Reset()
	c.CS, c.IP = 0x0000, 0x7C00
	c.ES, c.DS = 0, 0
	c.DI, c.SI = 0x8000, 0x8100
	c.CX = 4
	// F3 AA = REP STOSB
	load(b, 0x7C00, 0xF3, 0xAA)
	c.biu.flush(c.linearCSIP())
	c.AX = 0x0042

	steps := 0
	for c.pendingRep != nil || steps == 0 {
		c.StepInstruction()
		steps++
		if steps > 10 {
			t.Fatalf("REP STOSB never terminated")
		}
	}
	if c.CX != 0 {
		t.Fatalf("CX after REP STOSB = %d, want 0", c.CX)
	}
	if steps != 4 {
		t.Fatalf("REP STOSB took %d StepInstruction calls, want 4 (one per iteration, spec §8 scenario 4)", steps)
	}
}
