// Package tga implements the PCjr/Tandy 1000 ("TGA") video adapter (spec
// §2's component list names PCjr/Tandy as a supported machine class):
// a CGA-compatible CRTC and mode-control register pair, but with VRAM
// mapped directly into conventional RAM (the "bus-mapped VRAM" spec §4.5
// alludes to for PCjr/Tandy) rather than a dedicated adapter-owned
// aperture, plus an extended 16-color mode CGA never had. Grounded on
// the cga package, generalized to read its display memory through a
// caller-supplied accessor instead of owning a private VRAM array.
package tga

import (
	"github.com/martypc-go/martypc/internal/video/crtc"
	"github.com/martypc-go/martypc/internal/video/font"
)

// RAMReader lets the TGA card read system RAM directly for its
// bus-mapped display buffer (spec's PCjr/Tandy "bus-mapped VRAM" note),
// rather than owning a dedicated VRAM array the way CGA/EGA/VGA do.
type RAMReader interface {
	Read8(addr uint32) byte
}

const (
	ModeText80      byte = 1 << 0
	ModeGraphics    byte = 1 << 1
	ModeVideoEnable byte = 1 << 3
	Mode16Color     byte = 1 << 4 // Tandy/PCjr extension over CGA's mode register
)

var tandyPalette = [16][3]byte{
	{0, 0, 0}, {0, 0, 170}, {0, 170, 0}, {0, 170, 170},
	{170, 0, 0}, {170, 0, 170}, {170, 85, 0}, {170, 170, 170},
	{85, 85, 85}, {85, 85, 255}, {85, 255, 85}, {85, 255, 255},
	{255, 85, 85}, {255, 85, 255}, {255, 255, 85}, {255, 255, 255},
}

// TGA is the adapter: CRTC timing, a page register selecting where in
// conventional RAM its display buffer starts, and the mode-control
// register.
type TGA struct {
	CRTC *crtc.CRTC
	RAM  RAMReader

	modeControl byte
	pageReg     byte // bank-select, PCjr/Tandy 16/32/64/128 KiB RAM window

	frame []byte
}

func New(ram RAMReader) *TGA {
	t := &TGA{CRTC: crtc.New(), RAM: ram}
	t.frame = make([]byte, 640*200*4)
	return t
}

func (t *TGA) bufferBase() uint32 {
	return uint32(t.pageReg&0x07) * 0x4000
}

// MMIORead/MMIOWrite exist only so TGA satisfies the same memmap.MMIODevice
// surface CGA/EGA/VGA do; the card has no private aperture to answer on,
// since the CPU's writes already land in conventional RAM ahead of RAM
// reading it back through RAMReader.
func (t *TGA) MMIORead(addr uint32) byte     { return t.RAM.Read8(addr) }
func (t *TGA) MMIOWrite(addr uint32, v byte) {}

func (t *TGA) ReadIO(port uint16) byte {
	switch port {
	case 0x3D5:
		return t.CRTC.ReadData()
	case 0x3DA:
		return t.statusRegister()
	case 0x3DF:
		return t.pageReg
	default:
		return 0xFF
	}
}

func (t *TGA) WriteIO(port uint16, value byte) {
	switch port {
	case 0x3D4:
		t.CRTC.SelectIndex(value)
	case 0x3D5:
		t.CRTC.WriteData(value)
	case 0x3D8:
		t.modeControl = value
	case 0x3DF:
		t.pageReg = value
	}
}

func (t *TGA) statusRegister() byte {
	var v byte
	if t.CRTC.VSync {
		v |= 1 << 3
	}
	return v
}

func (t *TGA) Tick(n int) {
	if t.CRTC.Tick(n) {
		t.renderFrame()
	}
}

func (t *TGA) renderFrame() {
	if t.modeControl&ModeGraphics == 0 {
		t.renderText()
		return
	}
	t.render16Color()
}

func (t *TGA) renderText() {
	base := t.bufferBase()
	start := uint32(t.CRTC.StartAddress())
	for row := 0; row < 25; row++ {
		for col := 0; col < 80; col++ {
			off := base + (start+uint32(row*80+col))*2
			ch := t.RAM.Read8(off)
			attr := t.RAM.Read8(off + 1)
			t.plotGlyph(col, row, ch, attr)
		}
	}
}

// plotGlyph draws one 8x8-scaled text cell from the shared font table,
// the same glyph source CGA uses - TGA's text mode is CGA-compatible
// (spec §2/§4.5), it just reads through bus-mapped RAM instead of a
// private VRAM array.
func (t *TGA) plotGlyph(col, row int, ch, attr byte) {
	glyph := font.Glyph8x16(ch)
	fg := tandyPalette[attr&0x0F]
	bg := tandyPalette[(attr>>4)&0x07]
	cw, chh := 640/80, 200/25
	for dy := 0; dy < chh; dy++ {
		rowBits := glyph[dy*font.Height/chh]
		for dx := 0; dx < cw; dx++ {
			bit := dx * 8 / cw
			rgb := bg
			if rowBits&(0x80>>uint(bit)) != 0 {
				rgb = fg
			}
			x, y := col*cw+dx, row*chh+dy
			idx := (y*640 + x) * 4
			if idx+3 < len(t.frame) {
				t.frame[idx], t.frame[idx+1], t.frame[idx+2], t.frame[idx+3] = rgb[0], rgb[1], rgb[2], 0xFF
			}
		}
	}
}

// render16Color renders the Tandy/PCjr 160x200x16 extended mode, one
// nibble per pixel.
func (t *TGA) render16Color() {
	base := t.bufferBase()
	start := uint32(t.CRTC.StartAddress())
	for y := 0; y < 200; y++ {
		rowBase := base + start + uint32((y%2)*0x2000+(y/2)*80)
		for x := 0; x < 160; x++ {
			b := t.RAM.Read8(rowBase + uint32(x/2))
			var nib byte
			if x%2 == 0 {
				nib = b >> 4
			} else {
				nib = b & 0x0F
			}
			rgb := tandyPalette[nib]
			for dx := 0; dx < 4; dx++ {
				idx := (y*640 + x*4 + dx) * 4
				if idx+3 < len(t.frame) {
					t.frame[idx], t.frame[idx+1], t.frame[idx+2], t.frame[idx+3] = rgb[0], rgb[1], rgb[2], 0xFF
				}
			}
		}
	}
}

func (t *TGA) Frame() []byte           { return t.frame }
func (t *TGA) IRQLine() (int, bool)    { return 0, false }
func (t *TGA) DMARequest() (int, bool) { return 0, false }
