package pit

import "testing"

// TestChannel0Mode3Rate checks that loading channel 0 with the documented
// 65536 (encoded as 0) divisor in mode 3 yields an output edge roughly
// every InputFrequency/65536 ticks, i.e. the ~18.2065 Hz IRQ0 rate real
// PC/XT BIOS timekeeping assumes (spec §8).
func TestChannel0Mode3Rate(t *testing.T) {
	p := New()
	// control word: channel 0, LOHI, mode 3, binary
	p.WriteIO(0x43, 0x36)
	p.WriteIO(0x40, 0x00) // LSB of 0 -> divisor 65536
	p.WriteIO(0x40, 0x00) // MSB

	edges := 0
	const totalTicks = 65536 * 3
	for i := 0; i < totalTicks; i++ {
		p.Tick(1)
		if p.OutChanged[0] {
			edges++
		}
	}
	if edges < 2 || edges > 4 {
		t.Fatalf("got %d output edges over %d ticks at divisor 65536, want ~3 (one per full period)", edges, totalTicks)
	}
}

func TestLatchPreservesCountAcrossRead(t *testing.T) {
	p := New()
	p.WriteIO(0x43, 0x34) // channel 0, LOHI, mode 2
	p.WriteIO(0x40, 0x10)
	p.WriteIO(0x40, 0x00)
	p.Tick(5)

	p.WriteIO(0x43, 0x00) // latch channel 0
	lo := p.ReadIO(0x40)
	p.Tick(100) // counter keeps running, but latched value must not change
	hi := p.ReadIO(0x40)
	_ = hi // second read is the MSB of the *latched* value, not a second latch

	if lo == 0 && hi == 0 {
		t.Fatalf("latch appears to have returned zero for both halves")
	}
}
