package tga

import "testing"

type fakeRAM struct {
	data [256 * 1024]byte
}

func (r *fakeRAM) Read8(addr uint32) byte { return r.data[addr%uint32(len(r.data))] }

func TestRenderTextDrawsGlyphFromCharacterByte(t *testing.T) {
	ram := &fakeRAM{}
	tg := New(ram)
	// place 'A' (0x41) with a bright attribute at the text buffer's start.
	ram.data[0] = 0x41
	ram.data[1] = 0x0F

	tg.renderText()

	lit := false
	for i := 0; i < len(tg.frame); i += 4 {
		if tg.frame[i] != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatalf("renderText produced an all-dark frame for a non-blank character")
	}
}
