// Package machine wires together the bus, CPU, scheduler, peripheral
// chips, video adapter and ROM set into one runnable system and exposes
// the boundary API a frontend drives (spec §6.3). Grounded on the
// teacher's top-level Machine/System construction (machine_bus.go's
// device-registration sequence), generalized from one fixed device set
// to the config-selected graph spec §6.1 describes.
package machine

import (
	"fmt"

	"github.com/martypc-go/martypc/internal/bus"
	"github.com/martypc-go/martypc/internal/config"
	"github.com/martypc-go/martypc/internal/cpu"
	"github.com/martypc-go/martypc/internal/devices/dma"
	"github.com/martypc-go/martypc/internal/devices/pic"
	"github.com/martypc-go/martypc/internal/devices/pit"
	"github.com/martypc-go/martypc/internal/devices/ppi"
	"github.com/martypc-go/martypc/internal/diskimage"
	"github.com/martypc-go/martypc/internal/logging"
	"github.com/martypc-go/martypc/internal/memmap"
	"github.com/martypc-go/martypc/internal/scheduler"
	"github.com/martypc-go/martypc/internal/trace"
	"github.com/martypc-go/martypc/internal/video/cga"
	"github.com/martypc-go/martypc/internal/video/ega"
	"github.com/martypc-go/martypc/internal/video/mda"
	"github.com/martypc-go/martypc/internal/video/tga"
	"github.com/martypc-go/martypc/internal/video/vga"
)

// VideoAdapter is the common surface the machine boundary's read_frame()
// needs from whichever card the config selected.
type VideoAdapter interface {
	memmap.MMIODevice
	bus.IOPort
	Tick(n int)
	Frame() []byte
}

// Machine is the assembled system graph.
type Machine struct {
	Bus       *bus.Bus
	CPU       *cpu.CPU
	Scheduler *scheduler.Scheduler
	PIT       *pit.PIT
	PIC       *pic.PIC
	DMA       *dma.Controller
	PPI       *ppi.PPI
	Video     VideoAdapter
	Trace     *trace.Controller

	floppy    [2]*diskimage.Floppy
	vhd       [2]*diskimage.VHD
	cartridge *diskimage.Cartridge

	log *logging.Logger
}

// New assembles a machine from a decoded config (spec §6.1). ROM loading
// is the caller's responsibility via internal/romset, applied to m.Bus
// before the first Reset.
func New(cfg *config.Machine) (*Machine, error) {
	m := &Machine{log: logging.New("machine")}

	m.Bus = bus.New()
	m.Bus.RefreshEnabled = cfg.CPU.DRAMRefreshSimulation
	m.Bus.Mem.InstallRange(memmap.Range{Start: 0, End: memmap.AddressMask, Kind: memmap.KindRAM})

	variant := cpu.Variant8088
	model := modelFor(cfg.Model)
	m.CPU = cpu.New(m.Bus, variant, model)
	m.CPU.OffRailsDetection = cfg.CPU.OffRailsDetection
	m.CPU.EnableServiceInterrupt(cfg.CPU.ServiceInterrupt)
	switch cfg.CPU.OnHalt {
	case config.OnHaltStop:
		m.CPU.OnHalt = cpu.OnHaltStop
	case config.OnHaltWarn:
		m.CPU.OnHalt = cpu.OnHaltWarn
	default:
		m.CPU.OnHalt = cpu.OnHaltContinue
	}

	m.Scheduler = scheduler.New(m.Bus, m.CPU)

	m.PIT = pit.New()
	m.Scheduler.PIT = m.PIT
	m.Bus.MapIOPort(0x40, 0x43, m.PIT)

	m.PIC = pic.New("master")
	m.Scheduler.PICs = []*pic.PIC{m.PIC}
	m.Bus.MapIOPort(0x20, 0x21, m.PIC)

	m.DMA = dma.New(m.Bus.Mem)
	m.Scheduler.DMA = m.DMA
	m.Bus.MapIOPort(0x00, 0x0F, m.DMA)
	m.Bus.MapIOPort(0x80, 0x8F, m.DMA)

	m.PPI = ppi.New(0x00)
	m.Scheduler.PPI = m.PPI
	m.Bus.MapIOPort(0x60, 0x63, m.PPI)

	if err := m.installVideo(cfg); err != nil {
		return nil, err
	}

	m.Trace = trace.NewController(4096, nil, nil)

	return m, nil
}

func modelFor(name string) cpu.CPUXModel {
	switch name {
	case "ibm5160":
		return cpu.Model5160
	case "pcjr":
		return cpu.ModelPCjr
	case "tandy1000":
		return cpu.ModelTandy1000
	default:
		return cpu.Model5150
	}
}

func (m *Machine) installVideo(cfg *config.Machine) error {
	if len(cfg.Video) == 0 {
		return nil
	}
	vc := cfg.Video[0]
	switch vc.Type {
	case "MDA", "Hercules":
		a := mda.New()
		m.Bus.Mem.InstallRange(memmap.Range{Start: 0xB0000, End: 0xB0FFF, Kind: memmap.KindMMIO, Device: a})
		m.Bus.MapIOPort(0x3B0, 0x3BF, a)
		m.Scheduler.Video = append(m.Scheduler.Video, a)
		m.Video = a
	case "CGA":
		a := cga.New()
		a.SetComposite(vc.Composite)
		m.Bus.Mem.InstallRange(memmap.Range{Start: 0xB8000, End: 0xBBFFF, Kind: memmap.KindMMIO, Device: a})
		m.Bus.MapIOPort(0x3D0, 0x3DF, a)
		m.Scheduler.Video = append(m.Scheduler.Video, a)
		m.Video = a
	case "EGA":
		a := ega.New()
		m.Bus.Mem.InstallRange(memmap.Range{Start: 0xA0000, End: 0xAFFFF, Kind: memmap.KindMMIO, Device: a})
		m.Bus.MapIOPort(0x3C0, 0x3CF, a)
		m.Bus.MapIOPort(0x3D0, 0x3DF, a)
		m.Scheduler.Video = append(m.Scheduler.Video, a)
		m.Video = a
	case "VGA":
		a := vga.New()
		m.Bus.Mem.InstallRange(memmap.Range{Start: 0xA0000, End: 0xAFFFF, Kind: memmap.KindMMIO, Device: a})
		m.Bus.MapIOPort(0x3C0, 0x3DF, a)
		m.Scheduler.Video = append(m.Scheduler.Video, a)
		m.Video = a
	case "TGA":
		// the Tandy/PCjr card has no private VRAM; it reads the display
		// buffer straight out of conventional RAM (spec's "bus-mapped
		// VRAM" note), so it needs no MMIO range of its own.
		a := tga.New(m.Bus.Mem)
		m.Bus.MapIOPort(0x3D0, 0x3DF, a)
		m.Scheduler.Video = append(m.Scheduler.Video, a)
		m.Video = a
	default:
		return fmt.Errorf("machine: video adapter %q not constructible from this config", vc.Type)
	}
	return nil
}

// Reset implements the boundary API's reset() (spec §6.3).
func (m *Machine) Reset() {
	m.CPU.Reset()
}

// StepInstruction implements the boundary API's step_instruction().
func (m *Machine) StepInstruction() cpu.StepResult {
	res := m.Scheduler.StepOnce()
	m.Trace.Observe(res, m.Scheduler.Cycles)
	return res
}

// RunFor implements run_for(ticks): steps until at least `ticks` system
// ticks have elapsed.
func (m *Machine) RunFor(ticks uint64) {
	target := m.Scheduler.Cycles + ticks
	for m.Scheduler.Cycles < target {
		m.StepInstruction()
	}
}

// RunUntil implements run_until(breakpoints): steps until execution
// reaches the address of one of the given breakpoints (of any kind) or
// the CPU halts for any reason, returning the triggering breakpoint if any.
func (m *Machine) RunUntil(breakpoints []trace.Breakpoint) *trace.Breakpoint {
	for _, bp := range breakpoints {
		m.Trace.AddBreakpoint(bp)
	}
	for {
		res := m.StepInstruction()
		if res.HaltReason != nil {
			return nil
		}
		if m.CPU.Halted {
			return nil
		}
		for i := range breakpoints {
			if breakpoints[i].Addr == res.CSIP {
				return &breakpoints[i]
			}
		}
	}
}

// ReadFrame implements read_frame() (spec §6.3).
func (m *Machine) ReadFrame() []byte {
	if m.Video == nil {
		return nil
	}
	return m.Video.Frame()
}

// InjectKeyboardEvent implements inject_keyboard_event() by pushing a
// scan code into the PPI's keyboard shift register (spec §6.3).
func (m *Machine) InjectKeyboardEvent(scanCode byte, down bool) {
	code := scanCode
	if !down {
		code |= 0x80
	}
	m.PPI.PushScanCode(code)
}

// MountFloppy implements mount_floppy() (spec §6.3). Resource errors
// (unsupported image size) are returned rather than panicking, so the
// caller can surface a user-visible notification and keep running
// without that drive (spec §7).
func (m *Machine) MountFloppy(drive int, imageBytes []byte) error {
	f, err := diskimage.MountFloppy(imageBytes)
	if err != nil {
		m.log.Warnf("mount_floppy drive %d: %v", drive, err)
		return err
	}
	m.floppy[drive] = f
	return nil
}

// MountVHD implements mount_vhd() (spec §6.3).
func (m *Machine) MountVHD(drive int, image []byte) error {
	v, err := diskimage.MountVHD(image)
	if err != nil {
		m.log.Warnf("mount_vhd drive %d: %v", drive, err)
		return err
	}
	m.vhd[drive] = v
	return nil
}

// InsertCartridge implements insert_cartridge() (spec §6.3): a PCjr/Tandy
// cartridge image is mapped read-only into the cartridge slot window.
func (m *Machine) InsertCartridge(data []byte) error {
	c, err := diskimage.InsertCartridge(data)
	if err != nil {
		m.log.Warnf("insert_cartridge: %v", err)
		return err
	}
	m.cartridge = c
	m.Bus.Mem.LoadROM(0xE0000, c.Data, 0)
	return nil
}

// ReadMemory/WriteMemory implement the debugger-facing memory access
// surface (spec §6.3).
func (m *Machine) ReadMemory(addr uint32, n int) []byte {
	return m.Bus.Mem.ReadBytes(addr, n)
}

func (m *Machine) WriteMemory(addr uint32, data []byte) {
	m.Bus.Mem.WriteBytes(addr, data)
}

// SetBreakpoint implements set_breakpoint() (spec §6.3).
func (m *Machine) SetBreakpoint(kind trace.BreakpointKind, addr uint32) {
	m.Trace.AddBreakpoint(trace.Breakpoint{Kind: kind, Addr: addr})
}

// StateSnapshot implements state_snapshot() for debugger displays (spec
// §6.3): the architectural register file plus the pending-halt reason,
// if any.
type StateSnapshot struct {
	AX, BX, CX, DX uint16
	SP, BP, SI, DI uint16
	CS, DS, ES, SS uint16
	IP             uint16
	Flags          uint16
	Cycles         uint64
	Halted         bool
}

func (m *Machine) StateSnapshot() StateSnapshot {
	return StateSnapshot{
		AX: m.CPU.AX, BX: m.CPU.BX, CX: m.CPU.CX, DX: m.CPU.DX,
		SP: m.CPU.SP, BP: m.CPU.BP, SI: m.CPU.SI, DI: m.CPU.DI,
		CS: m.CPU.CS, DS: m.CPU.DS, ES: m.CPU.ES, SS: m.CPU.SS,
		IP: m.CPU.IP, Flags: m.CPU.Flags, Cycles: m.CPU.Cycles, Halted: m.CPU.Halted,
	}
}
