// Package mda implements the IBM Monochrome Display Adapter (spec §4.5
// C5): a 6845 CRTC driving a fixed 80x25 text-only character generator
// over 4 KiB of dual-ported VRAM at 0xB0000. Grounded on the shared
// internal/video/crtc timing model; the MDA is the simplest CRTC
// consumer (no bitmap modes, no color) and so anchors the adapter
// pattern the CGA/EGA/VGA/TGA cards in this package tree follow.
package mda

import (
	"github.com/martypc-go/martypc/internal/video/crtc"
	"github.com/martypc-go/martypc/internal/video/font"
)

const (
	vramSize   = 4 * 1024
	vramBase   = 0xB0000
	charWidth  = 9
	charHeight = 14
	textCols   = 80
	textRows   = 25
)

// attribute bits, IBM monochrome text attribute byte.
const (
	attrUnderline byte = 1 << 0
	attrIntensity byte = 1 << 3
	attrBlink     byte = 1 << 7
)

// MDA is the adapter: CRTC timing plus VRAM plus the mode-control/status
// ports real MDA hardware exposes at 0x3B4/0x3B5/0x3B8/0x3BA.
type MDA struct {
	CRTC *crtc.CRTC
	vram [vramSize]byte

	modeControl byte
	frame       []byte // RGBA framebuffer, latched on VSync
}

func New() *MDA {
	m := &MDA{CRTC: crtc.New()}
	m.frame = make([]byte, textCols*charWidth*textRows*charHeight*4)
	return m
}

// MMIORead/MMIOWrite implement internal/memmap.MMIODevice over the
// 0xB0000-0xB0FFF aperture (mirrored across the full 32 KiB MDA window).
func (m *MDA) MMIORead(addr uint32) byte {
	return m.vram[(addr-vramBase)%vramSize]
}

func (m *MDA) MMIOWrite(addr uint32, value byte) {
	m.vram[(addr-vramBase)%vramSize] = value
}

// ReadIO/WriteIO implement internal/bus.IOPort over the CRTC index/data
// pair, the mode-control register, and the status register.
func (m *MDA) ReadIO(port uint16) byte {
	switch port {
	case 0x3B5:
		return m.CRTC.ReadData()
	case 0x3BA:
		return m.statusRegister()
	default:
		return 0xFF
	}
}

func (m *MDA) WriteIO(port uint16, value byte) {
	switch port {
	case 0x3B4:
		m.CRTC.SelectIndex(value)
	case 0x3B5:
		m.CRTC.WriteData(value)
	case 0x3B8:
		m.modeControl = value
	}
}

func (m *MDA) statusRegister() byte {
	var v byte
	if !m.CRTC.DisplayEnable {
		v |= 1 << 0 // "display enable" status bit is active-low display
	}
	if m.CRTC.HSync || m.CRTC.VSync {
		v |= 1 << 3
	}
	return v
}

// Tick advances the CRTC by n character-clock cycles; the MDA's dot clock
// is 9 pixels/character at the IBM-documented 16.257 MHz rate, but this
// model runs the CRTC in character-clock units and leaves finer dot-clock
// timing to the CGA adapter where it actually matters for snow/composite
// artifacts.
func (m *MDA) Tick(n int) {
	if m.CRTC.Tick(n) {
		m.renderFrame()
	}
}

func (m *MDA) renderFrame() {
	start := m.CRTC.StartAddress()
	for row := 0; row < textRows; row++ {
		for col := 0; col < textCols; col++ {
			off := (int(start) + row*textCols + col) * 2
			ch := m.vram[off%vramSize]
			attr := m.vram[(off+1)%vramSize]
			m.plotGlyph(col, row, ch, attr)
		}
	}
}

// plotGlyph paints one character cell from the shared font table (spec
// §4.5 text-mode rendering). MDA stretches the font's 8 columns to its
// 9-pixel cell by duplicating column 7 into column 8 for the box-drawing
// range 0xC0-0xDF (real MDA hardware does this so line-drawing characters
// join seamlessly); every other glyph leaves the 9th column blank. The
// underline attribute paints the cell's next-to-last scanline solid
// regardless of glyph content, matching the real 6845+MDA character
// generator's underline cursor row.
func (m *MDA) plotGlyph(col, row int, ch, attr byte) {
	glyph := font.Glyph8x16(ch)
	bright := byte(0x2A)
	if attr&attrIntensity != 0 {
		bright = 0x3F
	}
	if attr&attrBlink != 0 && m.CRTC.FrameCount%32 >= 16 {
		bright = 0
	}
	underline := attr&attrUnderline != 0
	dupNinthCol := ch >= 0xC0 && ch <= 0xDF
	px := col * charWidth
	py := row * charHeight
	for dy := 0; dy < charHeight; dy++ {
		rowBits := glyph[dy]
		if underline && dy == charHeight-2 {
			rowBits = 0xFF
		}
		for dx := 0; dx < charWidth; dx++ {
			var lit bool
			if dx < 8 {
				lit = rowBits&(0x80>>uint(dx)) != 0
			} else {
				lit = dupNinthCol && rowBits&0x01 != 0
			}
			idx := ((py+dy)*textCols*charWidth + (px + dx)) * 4
			if idx+3 >= len(m.frame) {
				continue
			}
			v := byte(0)
			if lit {
				v = bright * 6
			}
			m.frame[idx] = v
			m.frame[idx+1] = v
			m.frame[idx+2] = v
			m.frame[idx+3] = 0xFF
		}
	}
}

// Frame returns the latched RGBA framebuffer for read_frame() (spec §6.3).
func (m *MDA) Frame() []byte { return m.frame }

func (m *MDA) IRQLine() (int, bool)    { return 0, false }
func (m *MDA) DMARequest() (int, bool) { return 0, false }
