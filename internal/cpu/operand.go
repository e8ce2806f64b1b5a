package cpu

import "github.com/martypc-go/martypc/internal/disasm"

// operand is a decoded ModR/M operand: either a register (direct) or a
// resolved physical address (memory), per spec §3.2's BIU/EU split -
// the EU only ever touches memory through operand.read/write, which
// route to the BIU's busCycle.
type operand struct {
	isMemory bool
	reg      byte
	addr     uint32
}

// effectiveOffset computes a memory ModR/M's 16-bit intra-segment offset,
// independent of which segment register it's based against - this is the
// value LEA loads, before any segment is applied.
func (c *CPU) effectiveOffset(m disasm.ModRM) uint16 {
	base, index, _ := m.EABaseIndex()
	var off uint16
	if base >= 0 {
		off += c.getReg16(byte(base))
	}
	if index >= 0 {
		off += c.getReg16(byte(index))
	}
	off += uint16(m.Disp)
	return off
}

// effectiveAddress computes the 20-bit physical address for a memory
// ModR/M, applying the segment-override rule (forced segment, else SS
// for a BP-based EA, else DS) from spec §4.1.
func (c *CPU) effectiveAddress(m disasm.ModRM) uint32 {
	_, _, usesBP := m.EABaseIndex()
	off := c.effectiveOffset(m)

	seg := c.segOverride
	if seg == disasm.SegNone {
		if usesBP {
			seg = disasm.SegSS
		} else {
			seg = disasm.SegDS
		}
	}
	return Linear(c.getSeg(seg), off)
}

func (c *CPU) decodeOperand(m disasm.ModRM) operand {
	if m.IsMemory {
		return operand{isMemory: true, addr: c.effectiveAddress(m)}
	}
	return operand{isMemory: false, reg: m.RM}
}

func (c *CPU) readOperand8(op operand) (byte, int) {
	if op.isMemory {
		return c.readMem8(op.addr)
	}
	return c.getReg8(op.reg), 0
}

func (c *CPU) writeOperand8(op operand, v byte) int {
	if op.isMemory {
		return c.writeMem8(op.addr, v)
	}
	c.setReg8(op.reg, v)
	return 0
}

func (c *CPU) readOperand16(op operand) (uint16, int) {
	if op.isMemory {
		return c.readMem16(op.addr)
	}
	return c.getReg16(op.reg), 0
}

func (c *CPU) writeOperand16(op operand, v uint16) int {
	if op.isMemory {
		return c.writeMem16(op.addr, v)
	}
	c.setReg16(op.reg, v)
	return 0
}

func (c *CPU) push16(v uint16) int {
	c.SP -= 2
	return c.writeMem16(Linear(c.SS, c.SP), v)
}

func (c *CPU) pop16() (uint16, int) {
	v, cycles := c.readMem16(Linear(c.SS, c.SP))
	c.SP += 2
	return v, cycles
}
