package pic

import "testing"

func initPIC(p *PIC, vectorBase byte) {
	p.WriteIO(0x20, 0x11) // ICW1: init, edge, ICW4 needed
	p.WriteIO(0x21, vectorBase)
	p.WriteIO(0x21, 0x01) // ICW4: 8086 mode, no auto-EOI
}

func TestAcknowledgeReturnsVectorAndMovesToISR(t *testing.T) {
	p := New("test")
	initPIC(p, 0x08)
	p.WriteIO(0x21, 0x00) // unmask everything

	p.RaiseIRQ(0)
	if !p.Pending() {
		t.Fatalf("IRQ0 raised but Pending() is false")
	}
	vec := p.Acknowledge()
	if vec != 0x08 {
		t.Fatalf("Acknowledge() = %02X, want 08 (vectorBase+line0)", vec)
	}
	if p.ISR&0x01 == 0 {
		t.Fatalf("ISR bit 0 not set after acknowledge")
	}
	if p.IRR&0x01 != 0 {
		t.Fatalf("IRR bit 0 still set after acknowledge")
	}
}

func TestMaskedIRQIsNotPending(t *testing.T) {
	p := New("test")
	initPIC(p, 0x08)
	p.WriteIO(0x21, 0xFF) // mask everything

	p.RaiseIRQ(3)
	if p.Pending() {
		t.Fatalf("masked IRQ3 reported as pending")
	}
}

func TestHigherPriorityLineWinsOnSimultaneousRequest(t *testing.T) {
	p := New("test")
	initPIC(p, 0x08)
	p.WriteIO(0x21, 0x00)

	p.RaiseIRQ(5)
	p.RaiseIRQ(1)
	if vec := p.Acknowledge(); vec != 0x09 {
		t.Fatalf("Acknowledge() = %02X, want 09 (IRQ1 outranks IRQ5)", vec)
	}
}
