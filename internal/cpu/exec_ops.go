// exec_ops.go - operand-kind dispatch and per-instruction-class helpers
// backing exec.go's mnemonic switch. Splitting these out mirrors the
// teacher's cpu_x86_ops.go/cpu_x86_grp.go separation of "decode shape"
// from "what the group actually does".
package cpu

import "github.com/martypc-go/martypc/internal/disasm"

func isWideKind(k disasm.OperandKind) bool {
	switch k {
	case disasm.OpRM16, disasm.OpModRMReg16, disasm.OpAX, disasm.OpImm16, disasm.OpMoffs16:
		return true
	}
	return false
}

func isWideEntry(e disasm.Entry) bool {
	return isWideKind(e.Dst) || isWideKind(e.Src)
}

// moffsAddr resolves the direct-addressed operand used by 0xA0-0xA3
// (MOV AL/AX, moffs and back), honoring a segment override.
func (c *CPU) moffsAddr() (uint32, int) {
	off, oc := c.fetchImm16()
	seg := c.segOverride
	if seg == disasm.SegNone {
		seg = disasm.SegDS
	}
	return Linear(c.getSeg(seg), off), oc
}

func (c *CPU) readOperandKind(k disasm.OperandKind, m *disasm.ModRM) (uint16, int) {
	switch k {
	case disasm.OpRM8:
		v, rc := c.readOperand8(c.decodeOperand(*m))
		return uint16(v), rc
	case disasm.OpRM16:
		return c.readOperand16(c.decodeOperand(*m))
	case disasm.OpModRMReg8:
		return uint16(c.getReg8(m.Reg)), 0
	case disasm.OpModRMReg16:
		return c.getReg16(m.Reg), 0
	case disasm.OpAL:
		return uint16(c.AL()), 0
	case disasm.OpAX:
		return c.AX, 0
	case disasm.OpDX:
		return c.DX, 0
	case disasm.OpCL:
		return uint16(c.CL()), 0
	case disasm.OpOne:
		return 1, 0
	case disasm.OpImm8:
		v, ic := c.fetchImm8()
		return uint16(v), ic
	case disasm.OpImm16:
		return c.fetchImm16()
	case disasm.OpMoffs8:
		addr, ac := c.moffsAddr()
		v, rc := c.readMem8(addr)
		return uint16(v), ac + rc
	case disasm.OpMoffs16:
		addr, ac := c.moffsAddr()
		v, rc := c.readMem16(addr)
		return v, ac + rc
	}
	return 0, 0
}

func (c *CPU) writeOperandKind(k disasm.OperandKind, m *disasm.ModRM, v uint16) int {
	switch k {
	case disasm.OpRM8:
		return c.writeOperand8(c.decodeOperand(*m), byte(v))
	case disasm.OpRM16:
		return c.writeOperand16(c.decodeOperand(*m), v)
	case disasm.OpModRMReg8:
		c.setReg8(m.Reg, byte(v))
	case disasm.OpModRMReg16:
		c.setReg16(m.Reg, v)
	case disasm.OpAL:
		c.SetAL(byte(v))
	case disasm.OpAX:
		c.AX = v
	case disasm.OpMoffs8:
		addr, ac := c.moffsAddr()
		return ac + c.writeMem8(addr, byte(v))
	case disasm.OpMoffs16:
		addr, ac := c.moffsAddr()
		return ac + c.writeMem16(addr, v)
	}
	return 0
}

// execALU implements ADD/OR/ADC/SBB/AND/SUB/XOR/CMP over both the
// register-form opcodes (0x00-0x3D) and the arithmetic group (0x80/81/83),
// which share mnemonics once GroupTable has resolved the ModR/M reg field.
func (c *CPU) execALU(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	a, rc1 := c.readOperandKind(e.Dst, m)
	b, rc2 := c.readOperandKind(e.Src, m)
	cycles := rc1 + rc2

	// 0x83's group form (GRP1_16IMM8) packs a sign-extended 8-bit
	// immediate into a 16-bit operation - the only place a byte-sized
	// operand kind combines with a wide destination.
	if isWideKind(e.Dst) && e.Src == disasm.OpImm8 {
		b = uint16(int16(int8(byte(b))))
	}

	cf := 0
	if c.getFlag(FlagCF) {
		cf = 1
	}

	logic := e.Mnemonic == "AND" || e.Mnemonic == "OR" || e.Mnemonic == "XOR"
	sub := e.Mnemonic == "SUB" || e.Mnemonic == "CMP" || e.Mnemonic == "SBB"

	if isWideEntry(e) {
		var result uint32
		switch e.Mnemonic {
		case "ADD":
			result = uint32(a) + uint32(b)
		case "ADC":
			result = uint32(a) + uint32(b) + uint32(cf)
		case "SUB", "CMP":
			result = uint32(a) - uint32(b)
		case "SBB":
			result = uint32(a) - uint32(b) - uint32(cf)
		case "AND":
			result = uint32(a & b)
		case "OR":
			result = uint32(a | b)
		case "XOR":
			result = uint32(a ^ b)
		}
		if logic {
			c.setFlagsLogic16(uint16(result))
		} else {
			c.setFlagsArith16(result, a, b, sub)
		}
		if e.Mnemonic != "CMP" {
			cycles += c.writeOperandKind(e.Dst, m, uint16(result))
		}
		return cycles
	}

	a8, b8 := byte(a), byte(b)
	var result uint16
	switch e.Mnemonic {
	case "ADD":
		result = uint16(a8) + uint16(b8)
	case "ADC":
		result = uint16(a8) + uint16(b8) + uint16(cf)
	case "SUB", "CMP":
		result = uint16(a8) - uint16(b8)
	case "SBB":
		result = uint16(a8) - uint16(b8) - uint16(cf)
	case "AND":
		result = uint16(a8 & b8)
	case "OR":
		result = uint16(a8 | b8)
	case "XOR":
		result = uint16(a8 ^ b8)
	}
	if logic {
		c.setFlagsLogic8(byte(result))
	} else {
		c.setFlagsArith8(result, a8, b8, sub)
	}
	if e.Mnemonic != "CMP" {
		cycles += c.writeOperandKind(e.Dst, m, uint16(byte(result)))
	}
	return cycles
}

func (c *CPU) execMOV(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	v, rc := c.readOperandKind(e.Src, m)
	switch e.Dst {
	case disasm.OpReg8:
		// 0xB0-0xB7: the destination register rides in the opcode's low 3 bits.
		c.setReg8(opcode&7, byte(v))
		return rc
	case disasm.OpReg16:
		c.setReg16(opcode&7, v)
		return rc
	}
	return rc + c.writeOperandKind(e.Dst, m, v)
}

func (c *CPU) execXCHG(e disasm.Entry, m *disasm.ModRM) int {
	if isWideEntry(e) {
		op := c.decodeOperand(*m)
		a, rc := c.readOperand16(op)
		b := c.getReg16(m.Reg)
		rc += c.writeOperand16(op, b)
		c.setReg16(m.Reg, a)
		return rc
	}
	op := c.decodeOperand(*m)
	a, rc := c.readOperand8(op)
	b := c.getReg8(m.Reg)
	rc += c.writeOperand8(op, b)
	c.setReg8(m.Reg, a)
	return rc
}

func (c *CPU) execTEST(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	a, rc1 := c.readOperandKind(e.Dst, m)
	b, rc2 := c.readOperandKind(e.Src, m)
	if isWideEntry(e) {
		c.setFlagsLogic16(a & b)
	} else {
		c.setFlagsLogic8(byte(a) & byte(b))
	}
	return rc1 + rc2
}

// execINCDEC handles both the one-byte register forms (0x40-0x4F, where
// the register index rides in the opcode's low 3 bits) and the ModR/M
// group forms (0xFE/0xFF reg 0/1). INC/DEC famously leave CF alone.
func (c *CPU) execINCDEC(e disasm.Entry, m *disasm.ModRM, opcode byte, inc bool) int {
	if e.Dst == disasm.OpReg16 {
		idx := opcode & 7
		v := c.getReg16(idx)
		c.setReg16(idx, c.incdec16(v, inc))
		return 0
	}
	op := c.decodeOperand(*m)
	if e.Dst == disasm.OpRM8 {
		v, rc := c.readOperand8(op)
		return rc + c.writeOperand8(op, c.incdec8(v, inc))
	}
	v, rc := c.readOperand16(op)
	return rc + c.writeOperand16(op, c.incdec16(v, inc))
}

func (c *CPU) incdec8(v byte, inc bool) byte {
	cf := c.getFlag(FlagCF)
	var result uint16
	if inc {
		result = uint16(v) + 1
		c.setFlagsArith8(result, v, 1, false)
	} else {
		result = uint16(v) - 1
		c.setFlagsArith8(result, v, 1, true)
	}
	c.setFlag(FlagCF, cf)
	return byte(result)
}

func (c *CPU) incdec16(v uint16, inc bool) uint16 {
	cf := c.getFlag(FlagCF)
	var result uint32
	if inc {
		result = uint32(v) + 1
		c.setFlagsArith16(result, v, 1, false)
	} else {
		result = uint32(v) - 1
		c.setFlagsArith16(result, v, 1, true)
	}
	c.setFlag(FlagCF, cf)
	return uint16(result)
}

func (c *CPU) execPUSH(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	if e.Dst == disasm.OpReg16 {
		return c.push16(c.getReg16(opcode & 7))
	}
	v, rc := c.readOperand16(c.decodeOperand(*m))
	return rc + c.push16(v)
}

func (c *CPU) execPOP(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	if e.Dst == disasm.OpReg16 {
		v, rc := c.pop16()
		c.setReg16(opcode&7, v)
		return rc
	}
	v, rc := c.pop16()
	return rc + c.writeOperand16(c.decodeOperand(*m), v)
}

// execLoop implements LOOP/LOOPZ/LOOPNZ/JCXZ, all sharing the rel8 CX-
// gated branch shape (spec's "re-entrant, one iteration per step" string
// ops are separate - these are plain control flow).
func (c *CPU) execLoop(e disasm.Entry) int {
	imm, cycles := c.fetchImm8()
	d := int8(imm)
	taken := false
	if e.Mnemonic == "JCXZ" {
		taken = c.CX == 0
	} else {
		c.CX--
		switch e.Mnemonic {
		case "LOOP":
			taken = c.CX != 0
		case "LOOPZ":
			taken = c.CX != 0 && c.getFlag(FlagZF)
		case "LOOPNZ":
			taken = c.CX != 0 && !c.getFlag(FlagZF)
		}
	}
	if taken {
		c.IP = uint16(int32(c.IP) + int32(d))
		c.flushPrefetch()
	}
	return cycles
}

func (c *CPU) execIN(e disasm.Entry) int {
	var port uint16
	cycles := 0
	if e.Src == disasm.OpImm8 {
		imm, ic := c.fetchImm8()
		port = uint16(imm)
		cycles += ic
	} else {
		port = c.DX
	}
	if e.Dst == disasm.OpAX {
		lo, c1 := c.inPort8(port)
		hi, c2 := c.inPort8(port + 1)
		c.AX = uint16(lo) | uint16(hi)<<8
		return cycles + c1 + c2
	}
	v, rc := c.inPort8(port)
	c.SetAL(v)
	return cycles + rc
}

func (c *CPU) execOUT(e disasm.Entry) int {
	var port uint16
	cycles := 0
	if e.Dst == disasm.OpImm8 {
		imm, ic := c.fetchImm8()
		port = uint16(imm)
		cycles += ic
	} else {
		port = c.DX
	}
	if e.Src == disasm.OpAX {
		c1 := c.outPort8(port, byte(c.AX))
		c2 := c.outPort8(port+1, byte(c.AX>>8))
		return cycles + c1 + c2
	}
	return cycles + c.outPort8(port, c.AL())
}

func (c *CPU) execNOT(e disasm.Entry, m *disasm.ModRM) int {
	op := c.decodeOperand(*m)
	if e.Dst == disasm.OpRM8 {
		v, rc := c.readOperand8(op)
		return rc + c.writeOperand8(op, ^v)
	}
	v, rc := c.readOperand16(op)
	return rc + c.writeOperand16(op, ^v)
}

func (c *CPU) execNEG(e disasm.Entry, m *disasm.ModRM) int {
	op := c.decodeOperand(*m)
	if e.Dst == disasm.OpRM8 {
		v, rc := c.readOperand8(op)
		c.setFlagsArith8(uint16(0)-uint16(v), 0, v, true)
		return rc + c.writeOperand8(op, 0-v)
	}
	v, rc := c.readOperand16(op)
	c.setFlagsArith16(uint32(0)-uint32(v), 0, v, true)
	return rc + c.writeOperand16(op, 0-v)
}

func (c *CPU) execMUL(e disasm.Entry, m *disasm.ModRM, signed bool) int {
	op := c.decodeOperand(*m)
	if e.Dst == disasm.OpRM8 {
		v, rc := c.readOperand8(op)
		if signed {
			result := int16(int8(c.AL())) * int16(int8(v))
			c.AX = uint16(result)
			overflow := result != int16(int8(byte(result)))
			c.setFlag(FlagCF, overflow)
			c.setFlag(FlagOF, overflow)
		} else {
			result := uint16(c.AL()) * uint16(v)
			c.AX = result
			overflow := result&0xFF00 != 0
			c.setFlag(FlagCF, overflow)
			c.setFlag(FlagOF, overflow)
		}
		return rc
	}
	v, rc := c.readOperand16(op)
	if signed {
		result := int32(int16(c.AX)) * int32(int16(v))
		c.AX = uint16(result)
		c.DX = uint16(uint32(result) >> 16)
		overflow := result != int32(int16(uint16(result)))
		c.setFlag(FlagCF, overflow)
		c.setFlag(FlagOF, overflow)
	} else {
		result := uint32(c.AX) * uint32(v)
		c.AX = uint16(result)
		c.DX = uint16(result >> 16)
		overflow := c.DX != 0
		c.setFlag(FlagCF, overflow)
		c.setFlag(FlagOF, overflow)
	}
	return rc
}

// execDIV implements DIV/IDIV including the #DE-equivalent: on an 8086
// this is interrupt 0, raised on divide-by-zero or quotient overflow
// (spec §8 "Division exception: DIV with a zero divisor raises interrupt
// 0 with FLAGS/CS/IP pushed").
func (c *CPU) execDIV(e disasm.Entry, m *disasm.ModRM, signed bool) int {
	op := c.decodeOperand(*m)
	if e.Dst == disasm.OpRM8 {
		v, rc := c.readOperand8(op)
		if v == 0 {
			c.raiseInterrupt(0, false)
			return rc
		}
		if signed {
			dividend := int16(c.AX)
			divisor := int16(int8(v))
			q, r := dividend/divisor, dividend%divisor
			if q > 127 || q < -128 {
				c.raiseInterrupt(0, false)
				return rc
			}
			c.SetAL(byte(q))
			c.SetAH(byte(r))
		} else {
			dividend, divisor := c.AX, uint16(v)
			q, r := dividend/divisor, dividend%divisor
			if q > 0xFF {
				c.raiseInterrupt(0, false)
				return rc
			}
			c.SetAL(byte(q))
			c.SetAH(byte(r))
		}
		return rc
	}

	v, rc := c.readOperand16(op)
	if v == 0 {
		c.raiseInterrupt(0, false)
		return rc
	}
	if signed {
		dividend := int32(int16(c.DX))<<16 | int32(c.AX)
		divisor := int32(int16(v))
		q, r := dividend/divisor, dividend%divisor
		if q > 32767 || q < -32768 {
			c.raiseInterrupt(0, false)
			return rc
		}
		c.AX = uint16(q)
		c.DX = uint16(r)
	} else {
		dividend := uint32(c.DX)<<16 | uint32(c.AX)
		divisor := uint32(v)
		q, r := dividend/divisor, dividend%divisor
		if q > 0xFFFF {
			c.raiseInterrupt(0, false)
			return rc
		}
		c.AX = uint16(q)
		c.DX = uint16(r)
	}
	return rc
}

func (c *CPU) execShiftRotate(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	var count byte
	if e.Src == disasm.OpCL {
		count = c.CL() & 0x1F
	} else {
		count = 1
	}
	op := c.decodeOperand(*m)
	if e.Dst == disasm.OpRM16 {
		v, rc := c.readOperand16(op)
		return rc + c.writeOperand16(op, c.shiftRotate16(e.Mnemonic, v, count))
	}
	v, rc := c.readOperand8(op)
	return rc + c.writeOperand8(op, c.shiftRotate8(e.Mnemonic, v, count))
}

func b2u8(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) shiftRotate8(mnemonic string, v byte, count byte) byte {
	if count == 0 {
		return v
	}
	cf := c.getFlag(FlagCF)
	result := v
	for i := byte(0); i < count; i++ {
		switch mnemonic {
		case "ROL":
			cf = result&0x80 != 0
			result = result<<1 | b2u8(cf)
		case "ROR":
			cf = result&1 != 0
			result = result>>1 | b2u8(cf)<<7
		case "RCL":
			newCF := result&0x80 != 0
			result = result<<1 | b2u8(cf)
			cf = newCF
		case "RCR":
			newCF := result&1 != 0
			result = result>>1 | b2u8(cf)<<7
			cf = newCF
		case "SHL":
			cf = result&0x80 != 0
			result = result << 1
		case "SHR":
			cf = result&1 != 0
			result = result >> 1
		case "SAR":
			cf = result&1 != 0
			result = byte(int8(result) >> 1)
		}
	}
	c.setFlag(FlagCF, cf)
	if count == 1 {
		switch mnemonic {
		case "ROL", "SHL":
			c.setFlag(FlagOF, result&0x80 != 0 != cf)
		case "ROR":
			c.setFlag(FlagOF, result&0x80 != 0 != (result&0x40 != 0))
		case "SAR":
			c.setFlag(FlagOF, false)
		case "SHR":
			c.setFlag(FlagOF, v&0x80 != 0)
		}
	}
	if mnemonic == "SHL" || mnemonic == "SHR" || mnemonic == "SAR" {
		c.setFlag(FlagZF, result == 0)
		c.setFlag(FlagSF, result&0x80 != 0)
		c.setFlag(FlagPF, parity(result))
	}
	return result
}

func (c *CPU) shiftRotate16(mnemonic string, v uint16, count byte) uint16 {
	if count == 0 {
		return v
	}
	cf := c.getFlag(FlagCF)
	result := v
	for i := byte(0); i < count; i++ {
		switch mnemonic {
		case "ROL":
			cf = result&0x8000 != 0
			result = result<<1 | uint16(b2u8(cf))
		case "ROR":
			cf = result&1 != 0
			result = result>>1 | uint16(b2u8(cf))<<15
		case "RCL":
			newCF := result&0x8000 != 0
			result = result<<1 | uint16(b2u8(cf))
			cf = newCF
		case "RCR":
			newCF := result&1 != 0
			result = result>>1 | uint16(b2u8(cf))<<15
			cf = newCF
		case "SHL":
			cf = result&0x8000 != 0
			result = result << 1
		case "SHR":
			cf = result&1 != 0
			result = result >> 1
		case "SAR":
			cf = result&1 != 0
			result = uint16(int16(result) >> 1)
		}
	}
	c.setFlag(FlagCF, cf)
	if count == 1 {
		switch mnemonic {
		case "ROL", "SHL":
			c.setFlag(FlagOF, result&0x8000 != 0 != cf)
		case "ROR":
			c.setFlag(FlagOF, result&0x8000 != 0 != (result&0x4000 != 0))
		case "SAR":
			c.setFlag(FlagOF, false)
		case "SHR":
			c.setFlag(FlagOF, v&0x8000 != 0)
		}
	}
	if mnemonic == "SHL" || mnemonic == "SHR" || mnemonic == "SAR" {
		c.setFlag(FlagZF, result == 0)
		c.setFlag(FlagSF, result&0x8000 != 0)
		c.setFlag(FlagPF, parity(byte(result)))
	}
	return result
}
