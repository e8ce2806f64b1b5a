// Package cga implements the IBM Color Graphics Adapter (spec §4.5 C5):
// a 6845 CRTC driving 16 KiB of VRAM at 0xB8000 in either 80x25/40x25
// text modes or 320x200x4 / 640x200x1 graphics modes, plus the composite
// artifact-color and "CGA snow" behaviors that timing-sensitive demos
// (8088 MPH, Area 5150, spec §8) rely on. Grounded on the shared
// internal/video/crtc timing model and on the mda package's adapter
// shape, generalized to CGA's dual text/graphics mode register and
// dot-clock-accurate tick granularity.
package cga

import (
	"github.com/martypc-go/martypc/internal/video/crtc"
	"github.com/martypc-go/martypc/internal/video/font"
)

const (
	vramSize = 16 * 1024
	vramBase = 0xB8000
)

// Mode-control register bits (port 0x3D8).
const (
	ModeText80    byte = 1 << 0
	ModeGraphics  byte = 1 << 1
	ModeBW        byte = 1 << 2
	ModeVideoEnable byte = 1 << 3
	Mode640       byte = 1 << 4
	ModeBlink     byte = 1 << 5
)

// Color-select register bits (port 0x3D9).
const (
	ColorPaletteSelect byte = 1 << 5
	ColorIntense       byte = 1 << 4
)

// CGA's text-mode 16-color RGBI palette, spec's "RGBI" path.
var rgbiPalette = [16][3]byte{
	{0, 0, 0}, {0, 0, 170}, {0, 170, 0}, {0, 170, 170},
	{170, 0, 0}, {170, 0, 170}, {170, 85, 0}, {170, 170, 170},
	{85, 85, 85}, {85, 85, 255}, {85, 255, 85}, {85, 255, 255},
	{255, 85, 85}, {255, 85, 255}, {255, 255, 85}, {255, 255, 255},
}

// ClockMode names a pixel-generator granularity. WriteIO records
// ClockDot or ClockCharacter from the mode register's 640 bit, but Tick
// does not consult it: the CRTC advances one character per tick in every
// mode, and ClockScanline is never selected.
type ClockMode int

const (
	ClockCharacter ClockMode = iota
	ClockDot
	ClockScanline
)

// CGA is the adapter state: CRTC timing, VRAM, mode/color-select
// registers, and the snow-simulation read/write race flag.
type CGA struct {
	CRTC *crtc.CRTC
	vram [vramSize]byte

	modeControl byte
	colorSelect byte
	clockMode   ClockMode

	// Composite selects the reenigne-style NTSC artifact-color simulation
	// for 640x200x1 output instead of the digital RGBI monochrome render
	// (spec §4.5 "simulates the reenigne composite color multiplexer at
	// character-clock granularity") - a property of the monitor attached
	// to the machine, not of the adapter's own registers.
	Composite bool

	// Snow is set for one tick when the CPU accesses VRAM during active
	// display (spec §8's CGA snow scenario): real CGA hardware corrupts
	// the byte fetched for display when its own VRAM read races a 8088
	// bus cycle on an odd memory cycle.
	Snow bool

	frame []byte
}

func New() *CGA {
	c := &CGA{CRTC: crtc.New(), clockMode: ClockCharacter}
	c.frame = make([]byte, 640*200*4)
	return c
}

// SetComposite toggles composite-monitor output for 640x200x1 graphics
// (spec §4.5); text modes and the 320x200x4 RGBI mode are unaffected,
// matching how a composite monitor only reveals artifact color in CGA's
// single-bitplane high-resolution mode.
func (c *CGA) SetComposite(enabled bool) { c.Composite = enabled }

func (c *CGA) MMIORead(addr uint32) byte {
	off := (addr - vramBase) % vramSize
	if c.modeControl&ModeVideoEnable != 0 && c.CRTC.DisplayEnable {
		c.Snow = true
	}
	return c.vram[off]
}

func (c *CGA) MMIOWrite(addr uint32, value byte) {
	off := (addr - vramBase) % vramSize
	if c.modeControl&ModeVideoEnable != 0 && c.CRTC.DisplayEnable {
		c.Snow = true
	}
	c.vram[off] = value
}

func (c *CGA) ReadIO(port uint16) byte {
	switch port {
	case 0x3D5:
		return c.CRTC.ReadData()
	case 0x3DA:
		return c.statusRegister()
	default:
		return 0xFF
	}
}

func (c *CGA) WriteIO(port uint16, value byte) {
	switch port {
	case 0x3D4:
		c.CRTC.SelectIndex(value)
	case 0x3D5:
		c.CRTC.WriteData(value)
	case 0x3D8:
		c.modeControl = value
		if value&Mode640 != 0 {
			c.clockMode = ClockDot
		} else {
			c.clockMode = ClockCharacter
		}
	case 0x3D9:
		c.colorSelect = value
	}
}

func (c *CGA) statusRegister() byte {
	var v byte
	if !c.CRTC.DisplayEnable {
		v |= 1 << 0
	}
	if c.CRTC.VSync {
		v |= 1 << 3
	}
	return v
}

// Tick advances the CRTC by n ticks, the same way in every clock mode,
// and renders a frame each time the CRTC completes one.
func (c *CGA) Tick(n int) {
	c.Snow = false
	if c.CRTC.Tick(n) {
		c.renderFrame()
	}
}

func (c *CGA) renderFrame() {
	if c.modeControl&ModeGraphics != 0 {
		if c.modeControl&Mode640 != 0 {
			c.render640x200x1()
		} else {
			c.render320x200x4()
		}
		return
	}
	c.renderText()
}

func (c *CGA) renderText() {
	cols := 40
	if c.modeControl&ModeText80 != 0 {
		cols = 80
	}
	start := c.CRTC.StartAddress()
	rows := 25
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			off := (int(start) + row*cols + col) * 2
			ch := c.vram[off%vramSize]
			attr := c.vram[(off+1)%vramSize]
			c.plotGlyph(col, row, cols, ch, attr)
		}
	}
}

// plotGlyph paints one text-mode cell from the shared font table,
// scaling the 8x16 glyph to CGA's 8-tall cell (25 rows over 200
// scanlines; 8 pixels wide in 80-column mode, 16 in 40-column mode) and
// honoring the blink attribute (bit 7) the same way
// the mode-control register's blink-enable bit (spec §4.5) gates it.
func (c *CGA) plotGlyph(col, row, cols int, ch, attr byte) {
	glyph := font.Glyph8x16(ch)
	fg := rgbiPalette[attr&0x0F]
	bg := rgbiPalette[(attr>>4)&0x07]
	blinking := c.modeControl&ModeBlink != 0 && attr&0x80 != 0
	if blinking && c.CRTC.FrameCount%32 >= 16 {
		fg = bg
	}
	cw := 640 / cols
	chh := 200 / 25
	for dy := 0; dy < chh; dy++ {
		rowBits := glyph[dy*font.Height/chh]
		for dx := 0; dx < cw; dx++ {
			bit := dx * 8 / cw
			rgb := bg
			if rowBits&(0x80>>uint(bit)) != 0 {
				rgb = fg
			}
			x := col*cw + dx
			y := row*chh + dy
			idx := (y*640 + x) * 4
			if idx+3 >= len(c.frame) {
				continue
			}
			c.frame[idx], c.frame[idx+1], c.frame[idx+2], c.frame[idx+3] = rgb[0], rgb[1], rgb[2], 0xFF
		}
	}
}

// render320x200x4 renders the 2bpp packed-pixel mode through the palette
// selected by the color-select register (spec §4.5, §8 "CGA color-cycle
// palette-swap scenario").
func (c *CGA) render320x200x4() {
	palette := c.activePalette()
	for y := 0; y < 200; y++ {
		rowBase := (y%2)*0x2000 + (y/2)*80
		for x := 0; x < 320; x++ {
			byteOff := (rowBase + x/4) % vramSize
			shift := uint(6 - 2*(x%4))
			pix := (c.vram[byteOff] >> shift) & 0x03
			rgb := palette[pix]
			for dx := 0; dx < 2; dx++ {
				idx := (y*640 + x*2 + dx) * 4
				if idx+3 >= len(c.frame) {
					continue
				}
				c.frame[idx], c.frame[idx+1], c.frame[idx+2], c.frame[idx+3] = rgb[0], rgb[1], rgb[2], 0xFF
			}
		}
	}
}

func (c *CGA) render640x200x1() {
	if c.Composite {
		c.renderComposite640x200()
		return
	}
	fg := rgbiPalette[15]
	bg := rgbiPalette[0]
	for y := 0; y < 200; y++ {
		for x := 0; x < 640; x++ {
			rgb := bg
			if c.bitAt640(x, y) != 0 {
				rgb = fg
			}
			idx := (y*640 + x) * 4
			if idx+3 >= len(c.frame) {
				continue
			}
			c.frame[idx], c.frame[idx+1], c.frame[idx+2], c.frame[idx+3] = rgb[0], rgb[1], rgb[2], 0xFF
		}
	}
}

func (c *CGA) bitAt640(x, y int) byte {
	rowBase := (y%2)*0x2000 + (y/2)*80
	byteOff := (rowBase + x/8) % vramSize
	return (c.vram[byteOff] >> uint(7-x%8)) & 1
}

// compositePalette approximates the 16 NTSC artifact colors a composite
// monitor derives from a run of monochrome dots, indexed by a 4-bit
// sliding window of consecutive framebuffer bits the way the color
// subcarrier's phase is set by the pattern of dots around it (spec §4.5
// "reenigne composite color multiplexer").
var compositePalette = [16][3]byte{
	{0, 0, 0}, {0, 107, 40}, {0, 46, 158}, {30, 137, 227},
	{154, 24, 26}, {108, 108, 108}, {172, 41, 219}, {176, 156, 255},
	{48, 91, 0}, {38, 180, 69}, {108, 108, 108}, {121, 208, 185},
	{213, 101, 0}, {209, 179, 84}, {255, 160, 209}, {255, 255, 255},
}

// renderComposite640x200 walks each pixel-pair's neighborhood of bits to
// pick a composite artifact color, modeling how a CGA composite signal's
// color information comes from the timing relationship between
// consecutive dots rather than from a digital color code (spec §8
// testable scenario 1).
func (c *CGA) renderComposite640x200() {
	for y := 0; y < 200; y++ {
		for x := 0; x < 640; x++ {
			idx4 := 0
			for i := -1; i <= 2; i++ {
				idx4 <<= 1
				px := x + i
				if px >= 0 && px < 640 {
					idx4 |= int(c.bitAt640(px, y))
				}
			}
			rgb := compositePalette[idx4&0x0F]
			idx := (y*640 + x) * 4
			if idx+3 >= len(c.frame) {
				continue
			}
			c.frame[idx], c.frame[idx+1], c.frame[idx+2], c.frame[idx+3] = rgb[0], rgb[1], rgb[2], 0xFF
		}
	}
}

// activePalette resolves the four-color 320x200 palette per the
// color-select register's palette-select/intensity bits.
func (c *CGA) activePalette() [4][3]byte {
	intensity := byte(0)
	if c.colorSelect&ColorIntense != 0 {
		intensity = 8
	}
	bg := rgbiPalette[c.colorSelect&0x0F]
	if c.colorSelect&ColorPaletteSelect != 0 {
		return [4][3]byte{bg, rgbiPalette[3+intensity], rgbiPalette[5+intensity], rgbiPalette[7+intensity]}
	}
	return [4][3]byte{bg, rgbiPalette[2+intensity], rgbiPalette[4+intensity], rgbiPalette[6+intensity]}
}

// Frame returns the latched RGBA framebuffer for read_frame() (spec §6.3).
func (c *CGA) Frame() []byte { return c.frame }

func (c *CGA) IRQLine() (int, bool)    { return 0, false }
func (c *CGA) DMARequest() (int, bool) { return 0, false }
