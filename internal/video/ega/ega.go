// Package ega implements a planar EGA adapter (spec §4.5 C5): a 6845-class
// CRTC plus the sequencer, graphics controller, and attribute controller
// register files that distinguish EGA's 4-bitplane model from CGA's
// packed-pixel VRAM. Grounded on the cga package's adapter shape,
// generalized from one packed plane to four independently addressed
// bitplanes behind the sequencer's map-mask register.
package ega

import "github.com/martypc-go/martypc/internal/video/crtc"

const (
	planeSize = 64 * 1024
	vramBase  = 0xA0000
)

// EGA's 64-color palette space (6-bit RGB via the attribute controller),
// reduced here to IBM's default 16-entry EGA palette for simplicity.
var egaPalette = [16][3]byte{
	{0, 0, 0}, {0, 0, 170}, {0, 170, 0}, {0, 170, 170},
	{170, 0, 0}, {170, 0, 170}, {170, 85, 0}, {170, 170, 170},
	{85, 85, 85}, {85, 85, 255}, {85, 255, 85}, {85, 255, 255},
	{255, 85, 85}, {255, 85, 255}, {255, 255, 85}, {255, 255, 255},
}

// EGA holds four bitplanes, the CRTC, and the sequencer/graphics
// controller/attribute controller index-addressed register files.
type EGA struct {
	CRTC *crtc.CRTC

	planes [4][]byte

	seqIndex byte
	seqRegs  [5]byte
	gcIndex  byte
	gcRegs   [9]byte
	acIndex  byte
	acRegs   [32]byte
	acFlip   bool

	frame []byte
}

func New() *EGA {
	e := &EGA{CRTC: crtc.New()}
	for i := range e.planes {
		e.planes[i] = make([]byte, planeSize)
	}
	e.frame = make([]byte, 640*350*4)
	return e
}

// mapMask returns the sequencer's write-plane-enable bitmask (index 2).
func (e *EGA) mapMask() byte { return e.seqRegs[2] & 0x0F }

// readMap returns the graphics-controller read-plane select (index 4).
func (e *EGA) readMap() byte { return e.gcRegs[4] & 0x03 }

func (e *EGA) MMIORead(addr uint32) byte {
	off := (addr - vramBase) % planeSize
	return e.planes[e.readMap()][off]
}

func (e *EGA) MMIOWrite(addr uint32, value byte) {
	off := (addr - vramBase) % planeSize
	mask := e.mapMask()
	for p := 0; p < 4; p++ {
		if mask&(1<<uint(p)) != 0 {
			e.planes[p][off] = value
		}
	}
}

func (e *EGA) ReadIO(port uint16) byte {
	switch port {
	case 0x3C5:
		return e.seqRegs[e.seqIndex%byte(len(e.seqRegs))]
	case 0x3CF:
		return e.gcRegs[e.gcIndex%byte(len(e.gcRegs))]
	case 0x3DA:
		e.acFlip = false
		return e.statusRegister()
	case 0x3D5:
		return e.CRTC.ReadData()
	default:
		return 0xFF
	}
}

func (e *EGA) WriteIO(port uint16, value byte) {
	switch port {
	case 0x3C4:
		e.seqIndex = value
	case 0x3C5:
		e.seqRegs[e.seqIndex%byte(len(e.seqRegs))] = value
	case 0x3CE:
		e.gcIndex = value
	case 0x3CF:
		e.gcRegs[e.gcIndex%byte(len(e.gcRegs))] = value
	case 0x3C0:
		if !e.acFlip {
			e.acIndex = value & 0x1F
		} else {
			e.acRegs[e.acIndex] = value
		}
		e.acFlip = !e.acFlip
	case 0x3D4:
		e.CRTC.SelectIndex(value)
	case 0x3D5:
		e.CRTC.WriteData(value)
	}
}

func (e *EGA) statusRegister() byte {
	var v byte
	if e.CRTC.VSync {
		v |= 1 << 3
	}
	return v
}

func (e *EGA) Tick(n int) {
	if e.CRTC.Tick(n) {
		e.renderFrame()
	}
}

// renderFrame walks the four bitplanes at the CRTC's character-addressed
// start offset, composing a 4-bit palette index per pixel the way the EGA
// graphics controller's read-mode-0 shifter does.
func (e *EGA) renderFrame() {
	const cols, rows = 80, 350 / 14
	start := int(e.CRTC.StartAddress())
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			off := (start + ty*cols + tx) % planeSize
			for bit := 0; bit < 8; bit++ {
				idx := byte(0)
				for p := 0; p < 4; p++ {
					if e.planes[p][off]&(1<<uint(7-bit)) != 0 {
						idx |= 1 << uint(p)
					}
				}
				rgb := egaPalette[e.acRegs[idx&0x0F]&0x0F]
				px := tx*8 + bit
				py := ty
				fidx := (py*640 + px) * 4
				if fidx+3 < len(e.frame) {
					e.frame[fidx], e.frame[fidx+1], e.frame[fidx+2], e.frame[fidx+3] = rgb[0], rgb[1], rgb[2], 0xFF
				}
			}
		}
	}
}

func (e *EGA) Frame() []byte           { return e.frame }
func (e *EGA) IRQLine() (int, bool)    { return 0, false }
func (e *EGA) DMARequest() (int, bool) { return 0, false }
