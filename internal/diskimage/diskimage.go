// Package diskimage recognizes and serves the disk/cartridge formats
// spec §6.4 names: raw sector floppy images, fixed-geometry VHD images,
// and PCjr cartridge JRC dumps. Format internals (an actual FDC/HDC chip
// state machine) are out of scope (spec §1); this package only parses
// an image buffer into addressable sectors/bytes for the machine
// boundary's mount_floppy/mount_vhd/insert_cartridge calls (spec §6.3).
package diskimage

import "fmt"

// FloppyGeometry enumerates the raw sector images spec §6.4 lists by
// size; drive type adapts to image size per spec §6.4.
type FloppyGeometry struct {
	Name           string
	Bytes          int
	Cylinders      int
	Heads          int
	SectorsPerTrack int
}

var floppyGeometries = []FloppyGeometry{
	{"160K", 160 * 1024, 40, 1, 8},
	{"180K", 180 * 1024, 40, 1, 9},
	{"320K", 320 * 1024, 40, 2, 8},
	{"360K", 360 * 1024, 40, 2, 9},
	{"720K", 720 * 1024, 80, 2, 9},
	{"1200K", 1200 * 1024, 80, 2, 15},
	{"1440K", 1440 * 1024, 80, 2, 18},
}

// Floppy is a mounted raw sector image addressed by CHS.
type Floppy struct {
	Geometry FloppyGeometry
	data     []byte
}

// MountFloppy recognizes a raw sector image purely by its size (spec
// §6.4 "Formats recognized by file size and/or magic").
func MountFloppy(data []byte) (*Floppy, error) {
	for _, g := range floppyGeometries {
		if len(data) == g.Bytes {
			return &Floppy{Geometry: g, data: data}, nil
		}
	}
	return nil, fmt.Errorf("diskimage: unsupported floppy image size %d bytes", len(data))
}

// ReadSector returns the 512-byte sector at the given CHS address.
func (f *Floppy) ReadSector(cyl, head, sector int) ([]byte, error) {
	off, err := f.sectorOffset(cyl, head, sector)
	if err != nil {
		return nil, err
	}
	return f.data[off : off+512], nil
}

// WriteSector overwrites the 512-byte sector at the given CHS address.
func (f *Floppy) WriteSector(cyl, head, sector int, buf []byte) error {
	off, err := f.sectorOffset(cyl, head, sector)
	if err != nil {
		return err
	}
	copy(f.data[off:off+512], buf)
	return nil
}

func (f *Floppy) sectorOffset(cyl, head, sector int) (int, error) {
	g := f.Geometry
	if cyl < 0 || cyl >= g.Cylinders || head < 0 || head >= g.Heads || sector < 1 || sector > g.SectorsPerTrack {
		return 0, fmt.Errorf("diskimage: CHS %d/%d/%d out of range for %s image", cyl, head, sector, g.Name)
	}
	lba := (cyl*g.Heads+head)*g.SectorsPerTrack + (sector - 1)
	return lba * 512, nil
}

// vhdFixedFooterSize is the 512-byte footer every fixed-geometry VHD
// image carries at its tail, per the Microsoft VHD spec's "hard disk
// footer format".
const vhdFixedFooterSize = 512

var vhdCookie = [8]byte{'c', 'o', 'n', 'e', 'c', 't', 'i', 'x'}

// VHD is a mounted fixed-geometry VHD image (spec §6.4: "Xebec 20 MiB").
type VHD struct {
	data       []byte
	dataBytes  int
	Cylinders  int
	Heads      int
	SectorsPerTrack int
}

// MountVHD parses the trailing 512-byte footer of a fixed-geometry VHD
// image and validates its magic cookie.
func MountVHD(data []byte) (*VHD, error) {
	if len(data) <= vhdFixedFooterSize {
		return nil, fmt.Errorf("diskimage: VHD image too small")
	}
	footer := data[len(data)-vhdFixedFooterSize:]
	for i, b := range vhdCookie {
		if footer[i] != b {
			return nil, fmt.Errorf("diskimage: VHD magic cookie mismatch")
		}
	}
	cyl := int(footer[56])<<8 | int(footer[57])
	heads := int(footer[58])
	spt := int(footer[59])
	return &VHD{
		data:            data[:len(data)-vhdFixedFooterSize],
		dataBytes:       len(data) - vhdFixedFooterSize,
		Cylinders:       cyl,
		Heads:           heads,
		SectorsPerTrack: spt,
	}, nil
}

func (v *VHD) ReadSector(cyl, head, sector int) ([]byte, error) {
	lba := (cyl*v.Heads+head)*v.SectorsPerTrack + (sector - 1)
	off := lba * 512
	if off < 0 || off+512 > v.dataBytes {
		return nil, fmt.Errorf("diskimage: VHD LBA %d out of range", lba)
	}
	return v.data[off : off+512], nil
}

// jrcMagic is the PCjr cartridge dump header this package recognizes a
// JRC image by (spec §6.4 "PCjr cartridge JRC dumps").
var jrcMagic = []byte{0x55, 0xAA}

// Cartridge is a mounted PCjr/Tandy cartridge ROM image; the machine's
// InsertCartridge loads it as ROM at 0xE0000 when it is inserted.
type Cartridge struct {
	Data []byte
}

// InsertCartridge recognizes a JRC dump by its boot-sector signature
// byte pair at offset 0, matching the way PCjr ROM cartridges self-
// identify to the BIOS cartridge scan.
func InsertCartridge(data []byte) (*Cartridge, error) {
	if len(data) < 2 || data[0] != jrcMagic[0] || data[1] != jrcMagic[1] {
		return nil, fmt.Errorf("diskimage: cartridge image missing JRC signature")
	}
	return &Cartridge{Data: data}, nil
}
