package ppi

import "testing"

func TestKeyboardScanCodeAssertsIRQ1UntilCleared(t *testing.T) {
	p := New(0x30)

	if _, pending := p.IRQLine(); pending {
		t.Fatalf("IRQ1 pending before any scan code arrived")
	}

	p.PushScanCode(0x1E) // 'A' make code
	line, pending := p.IRQLine()
	if line != 1 || !pending {
		t.Fatalf("IRQLine() = (%d,%v), want (1,true) after PushScanCode", line, pending)
	}
	if got := p.ReadIO(0x60); got != 0x1E {
		t.Fatalf("port A read = %02X, want 1E", got)
	}

	p.WriteIO(0x61, PortBKeyboardClear)
	if _, pending := p.IRQLine(); pending {
		t.Fatalf("IRQ1 still pending after port B keyboard-clear bit set")
	}
}

func TestDipSwitchReadbackSelectedByPortBBit(t *testing.T) {
	p := New(0xA5)

	p.WriteIO(0x61, 0) // PortBEnableSwitches clear -> high nibble
	if got := p.ReadIO(0x62); got != 0xA5>>4 {
		t.Fatalf("port C (high nibble select) = %02X, want %02X", got, byte(0xA5>>4))
	}

	p.WriteIO(0x61, PortBEnableSwitches)
	if got := p.ReadIO(0x62); got != 0xA5&0x0F {
		t.Fatalf("port C (low nibble select) = %02X, want %02X", got, byte(0xA5&0x0F))
	}
}

func TestGate2AndSpeakerEnabledReflectPortB(t *testing.T) {
	p := New(0)
	p.WriteIO(0x61, PortBTimer2Gate|PortBSpeakerData)
	if !p.Gate2() {
		t.Fatalf("Gate2() false with PortBTimer2Gate set")
	}
	if !p.SpeakerEnabled() {
		t.Fatalf("SpeakerEnabled() false with PortBSpeakerData set")
	}

	p.WriteIO(0x61, 0)
	if p.Gate2() || p.SpeakerEnabled() {
		t.Fatalf("Gate2/SpeakerEnabled still true after clearing port B")
	}
}
