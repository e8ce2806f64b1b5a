package crtc

import "testing"

func TestTickWrapsHorizontalAndVertical(t *testing.T) {
	c := New()
	c.Regs[RegHTotal] = 3 // 4 characters per line
	c.Regs[RegVTotal] = 1 // 2 lines per frame

	frames := 0
	for i := 0; i < 4*2*3; i++ {
		if c.Tick(1) {
			frames++
		}
	}
	if frames != 3 {
		t.Fatalf("got %d frame-complete signals over 3 full frames worth of ticks, want 3", frames)
	}
	if c.HPos < 0 || c.HPos > 3 {
		t.Fatalf("HPos %d out of range after wraparound", c.HPos)
	}
}

func TestStartAddressCombinesHiLo(t *testing.T) {
	c := New()
	c.SelectIndex(RegStartAddrHi)
	c.WriteData(0x12)
	c.SelectIndex(RegStartAddrLo)
	c.WriteData(0x34)
	if got := c.StartAddress(); got != 0x1234 {
		t.Fatalf("StartAddress() = %04X, want 1234", got)
	}
}
