package cpu

import "github.com/martypc-go/martypc/internal/disasm"

// CPU holds the full architectural and microarchitectural state of one
// 8088/V20 core (spec §3.2). Register accessors mirror the teacher's
// AX()/SetAX()/AL()/SetAL() style in cpu_x86.go, narrowed from the
// teacher's 32-bit EAX-backed registers to the 8086's native 16-bit
// general registers with 8-bit aliases.
type CPU struct {
	AX, BX, CX, DX uint16
	SP, BP, SI, DI uint16
	CS, DS, ES, SS uint16
	IP             uint16
	Flags          uint16

	Halted  bool
	running bool
	Cycles  uint64

	// Pending event latches (spec §3.2 "Pending events").
	nmiLatched  bool
	intrLine    bool
	intrVector  byte
	trapLatched bool
	stiDelay    bool
	waitForTPR  bool

	biu   *BIU
	eu    *executionUnit

	// Instruction-decode scratch state, reset every StepInstruction call.
	segOverride int // disasm.SegNone when absent
	repMode     int // 0 none, 1 REP/REPE, 2 REPNE
	lockPrefix  bool
	pendingRep  *repState

	// Variant selects the prefetch queue capacity (4 bytes on the 8088, 6
	// on the V20); instruction timings are the same for both variants.
	Variant Variant

	Model CPUXModel

	// OnHalt controls what HaltReason does when the CPU reports an
	// abnormal halt (spec §7 on_halt in {Continue, Warn, Stop}).
	OnHalt   OnHaltPolicy
	haltChan chan HaltReason

	serviceInterruptEnabled bool
	OffRailsDetection       bool
}

type Variant int

const (
	Variant8088 Variant = iota
	VariantV20
)

func (v Variant) PrefetchCapacity() int {
	if v == VariantV20 {
		return 6
	}
	return 4
}

// CPUXModel names the machine-class this core is configured for, purely
// informational: nothing in the core reads it.
type CPUXModel int

const (
	Model5150 CPUXModel = iota
	Model5160
	ModelPCjr
	ModelTandy1000
)

type OnHaltPolicy int

const (
	OnHaltContinue OnHaltPolicy = iota
	OnHaltWarn
	OnHaltStop
)

// HaltReason is delivered on the control channel when the CPU stops
// executing for a reason other than ordinary HLT (spec §4.1 "Failure
// semantics").
type HaltReason struct {
	Kind    string // "off-rails", "invalid-halt", "breakpoint", "rom-fetch"
	Addr    uint32
	Message string
}

func New(bus BIUBus, variant Variant, model CPUXModel) *CPU {
	c := &CPU{
		Variant:  variant,
		Model:    model,
		haltChan: make(chan HaltReason, 8),
		OnHalt:   OnHaltContinue,
	}
	c.biu = newBIU(bus, variant.PrefetchCapacity())
	c.eu = &executionUnit{cpu: c}
	c.Reset()
	return c
}

// Reset implements the 8088 power-on/reset vector: CS=0xFFFF, IP=0x0000
// (the reset vector lives at the top of the address space so BIOS ROM
// can be mapped there), flags cleared except the fixed reserved bits.
func (c *CPU) Reset() {
	c.AX, c.BX, c.CX, c.DX = 0, 0, 0, 0
	c.SP, c.BP, c.SI, c.DI = 0, 0, 0, 0
	c.DS, c.ES, c.SS = 0, 0, 0
	c.CS = 0xFFFF
	c.IP = 0
	c.Flags = normalizeFlags(0)
	c.Halted = false
	c.Cycles = 0
	c.nmiLatched = false
	c.intrLine = false
	c.trapLatched = false
	c.segOverride = disasm.SegNone
	c.biu.flush(c.linearCSIP())
}

func (c *CPU) linearCSIP() uint32 {
	return (uint32(c.CS) << 4) + uint32(c.IP)
}

// Linear resolves seg:off to a 20-bit physical address with the 8088's
// wraparound behavior at the 1 MiB boundary and within a segment (spec
// §8 "Segment wrap-around: reading a word at SS:FFFF wraps ... to
// SS:0000").
func Linear(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & 0xFFFFF
}

func (c *CPU) AL() byte     { return byte(c.AX) }
func (c *CPU) SetAL(v byte) { c.AX = c.AX&0xFF00 | uint16(v) }
func (c *CPU) AH() byte     { return byte(c.AX >> 8) }
func (c *CPU) SetAH(v byte) { c.AX = c.AX&0x00FF | uint16(v)<<8 }
func (c *CPU) BL() byte     { return byte(c.BX) }
func (c *CPU) SetBL(v byte) { c.BX = c.BX&0xFF00 | uint16(v) }
func (c *CPU) BH() byte     { return byte(c.BX >> 8) }
func (c *CPU) SetBH(v byte) { c.BX = c.BX&0x00FF | uint16(v)<<8 }
func (c *CPU) CL() byte     { return byte(c.CX) }
func (c *CPU) SetCL(v byte) { c.CX = c.CX&0xFF00 | uint16(v) }
func (c *CPU) CH() byte     { return byte(c.CX >> 8) }
func (c *CPU) SetCH(v byte) { c.CX = c.CX&0x00FF | uint16(v)<<8 }
func (c *CPU) DL() byte     { return byte(c.DX) }
func (c *CPU) SetDL(v byte) { c.DX = c.DX&0xFF00 | uint16(v) }
func (c *CPU) DH() byte     { return byte(c.DX >> 8) }
func (c *CPU) SetDH(v byte) { c.DX = c.DX&0x00FF | uint16(v)<<8 }

// getReg16/setReg16/getReg8/setReg8 give opcode-encoded register access,
// matching the teacher's getReg32/setReg32 O(1) dispatch (cpu_x86.go)
// but over the 8086's 8-register file.
func (c *CPU) getReg16(idx byte) uint16 {
	switch idx & 7 {
	case disasm.RegAX:
		return c.AX
	case disasm.RegCX:
		return c.CX
	case disasm.RegDX:
		return c.DX
	case disasm.RegBX:
		return c.BX
	case disasm.RegSP:
		return c.SP
	case disasm.RegBP:
		return c.BP
	case disasm.RegSI:
		return c.SI
	default:
		return c.DI
	}
}

func (c *CPU) setReg16(idx byte, v uint16) {
	switch idx & 7 {
	case disasm.RegAX:
		c.AX = v
	case disasm.RegCX:
		c.CX = v
	case disasm.RegDX:
		c.DX = v
	case disasm.RegBX:
		c.BX = v
	case disasm.RegSP:
		c.SP = v
	case disasm.RegBP:
		c.BP = v
	case disasm.RegSI:
		c.SI = v
	default:
		c.DI = v
	}
}

func (c *CPU) getReg8(idx byte) byte {
	switch idx & 7 {
	case 0:
		return c.AL()
	case 1:
		return c.CL()
	case 2:
		return c.DL()
	case 3:
		return c.BL()
	case 4:
		return c.AH()
	case 5:
		return c.CH()
	case 6:
		return c.DH()
	default:
		return c.BH()
	}
}

func (c *CPU) setReg8(idx byte, v byte) {
	switch idx & 7 {
	case 0:
		c.SetAL(v)
	case 1:
		c.SetCL(v)
	case 2:
		c.SetDL(v)
	case 3:
		c.SetBL(v)
	case 4:
		c.SetAH(v)
	case 5:
		c.SetCH(v)
	case 6:
		c.SetDH(v)
	default:
		c.SetBH(v)
	}
}

func (c *CPU) getSeg(idx int) uint16 {
	switch idx {
	case disasm.SegES:
		return c.ES
	case disasm.SegCS:
		return c.CS
	case disasm.SegSS:
		return c.SS
	default:
		return c.DS
	}
}

func (c *CPU) setSeg(idx int, v uint16) {
	switch idx {
	case disasm.SegES:
		c.ES = v
	case disasm.SegCS:
		c.CS = v
	case disasm.SegSS:
		c.SS = v
	default:
		c.DS = v
	}
}
