package bus

import "testing"

func TestRefreshStealsOneCycleEveryPeriod(t *testing.T) {
	b := New()
	b.RefreshEnabled = true

	stolen := 0
	const totalTicks = RefreshPeriod * 10
	for i := 0; i < totalTicks; i++ {
		if b.TickRefresh(1) {
			stolen++
		}
	}
	if stolen != 10 {
		t.Fatalf("got %d refresh steals over %d ticks at period %d, want 10", stolen, totalTicks, RefreshPeriod)
	}
}

func TestRefreshDisabledNeverSteals(t *testing.T) {
	b := New()
	if b.TickRefresh(RefreshPeriod * 5) {
		t.Fatalf("refresh fired while RefreshEnabled is false")
	}
}

type patchPort struct{ reads, writes int }

func (p *patchPort) ReadIO(port uint16) byte  { p.reads++; return 0x42 }
func (p *patchPort) WriteIO(port uint16, v byte) { p.writes++ }

func TestIOPortDispatch(t *testing.T) {
	b := New()
	port := &patchPort{}
	b.MapIOPort(0x300, 0x30F, port)

	if v := b.InIO(0x305); v != 0x42 {
		t.Fatalf("InIO(0x305) = %02X, want 42", v)
	}
	b.OutIO(0x305, 0x01)
	if port.reads != 1 || port.writes != 1 {
		t.Fatalf("reads=%d writes=%d, want 1/1", port.reads, port.writes)
	}
	if v := b.InIO(0x999); v != 0xFF {
		t.Fatalf("InIO of unmapped port = %02X, want FF", v)
	}
}
