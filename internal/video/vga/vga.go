// Package vga implements a minimal VGA adapter (spec §4.5 C5, Non-goal
// "SVGA" excludes anything past standard 256-color VGA modes): mode 0x13's
// linear 320x200x8 framebuffer plus a 256-entry DAC palette, layered over
// the same internal/video/crtc timing model the rest of this package tree
// shares. Grounded on the ega package's register-file-indexed adapter
// shape, generalized from EGA's 4-bitplane/16-color model to VGA's
// chained linear-byte-per-pixel/256-color model.
package vga

import "github.com/martypc-go/martypc/internal/video/crtc"

const (
	vramSize = 256 * 1024
	vramBase = 0xA0000
)

// VGA models mode 0x13 plus a DAC; text/planar VGA modes are accepted by
// the CRTC but rendered as mode 0x13 framebuffer reads, since the Non-goal
// on SVGA means this adapter only needs to carry the one mode the
// reference demos in spec §8 exercise.
type VGA struct {
	CRTC *crtc.CRTC
	vram [vramSize]byte

	dacWriteIndex byte
	dacReadIndex  byte
	dacChannel    int
	dac           [256][3]byte // 6-bit port values, stored shifted to 8-bit on write and shifted back on read

	frame []byte
}

func New() *VGA {
	v := &VGA{CRTC: crtc.New()}
	v.frame = make([]byte, 320*200*4)
	for i := range v.dac {
		g := byte(i)
		v.dac[i] = [3]byte{g, g, g}
	}
	return v
}

func (v *VGA) MMIORead(addr uint32) byte {
	return v.vram[(addr-vramBase)%vramSize]
}

func (v *VGA) MMIOWrite(addr uint32, value byte) {
	v.vram[(addr-vramBase)%vramSize] = value
}

func (v *VGA) ReadIO(port uint16) byte {
	switch port {
	case 0x3D5:
		return v.CRTC.ReadData()
	case 0x3C9:
		return v.readDAC()
	case 0x3DA:
		return v.statusRegister()
	default:
		return 0xFF
	}
}

func (v *VGA) WriteIO(port uint16, value byte) {
	switch port {
	case 0x3D4:
		v.CRTC.SelectIndex(value)
	case 0x3D5:
		v.CRTC.WriteData(value)
	case 0x3C7:
		v.dacReadIndex, v.dacChannel = value, 0
	case 0x3C8:
		v.dacWriteIndex, v.dacChannel = value, 0
	case 0x3C9:
		v.writeDAC(value)
	}
}

func (v *VGA) readDAC() byte {
	c := v.dac[v.dacReadIndex][v.dacChannel] >> 2
	v.dacChannel++
	if v.dacChannel == 3 {
		v.dacChannel = 0
		v.dacReadIndex++
	}
	return c
}

func (v *VGA) writeDAC(value byte) {
	v.dac[v.dacWriteIndex][v.dacChannel] = value << 2
	v.dacChannel++
	if v.dacChannel == 3 {
		v.dacChannel = 0
		v.dacWriteIndex++
	}
}

func (v *VGA) statusRegister() byte {
	var s byte
	if v.CRTC.VSync {
		s |= 1 << 3
	}
	return s
}

func (v *VGA) Tick(n int) {
	if v.CRTC.Tick(n) {
		v.renderFrame()
	}
}

func (v *VGA) renderFrame() {
	start := uint32(v.CRTC.StartAddress()) * 4 // mode 0x13 addresses by pixel, CRTC counts doublewords
	for y := 0; y < 200; y++ {
		for x := 0; x < 320; x++ {
			idx := v.vram[(start+uint32(y*320+x))%vramSize]
			rgb := v.dac[idx]
			fidx := (y*320 + x) * 4
			v.frame[fidx], v.frame[fidx+1], v.frame[fidx+2], v.frame[fidx+3] = rgb[0], rgb[1], rgb[2], 0xFF
		}
	}
}

func (v *VGA) Frame() []byte           { return v.frame }
func (v *VGA) IRQLine() (int, bool)    { return 0, false }
func (v *VGA) DMARequest() (int, bool) { return 0, false }
