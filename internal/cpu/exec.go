// exec.go - execution-unit semantics for the opcode subset in
// internal/disasm (spec §4.1 "EU / microcode"). Each case models one
// instruction's micro-operations: operand fetch, ALU step, operand
// store, matching the teacher's per-opcode handler functions in
// cpu_x86_ops.go/cpu_x86_grp.go but keyed by the shared disasm.Entry
// instead of a 256-entry function-pointer table, since CPU and
// disassembler now share one decode table (spec §4.6).
package cpu

import "github.com/martypc-go/martypc/internal/disasm"

func (c *CPU) execute(e disasm.Entry, m *disasm.ModRM, opcode byte) int {
	cycles := e.BaseCycles

	switch e.Mnemonic {
	case "ADD", "OR", "ADC", "SBB", "AND", "SUB", "XOR", "CMP":
		cycles += c.execALU(e, m, opcode)
	case "MOV":
		cycles += c.execMOV(e, m, opcode)
	case "MOV_SEG_RM":
		// 0x8C: MOV r/m16, Sreg - segment register value stored to r/m.
		v := c.getSeg(int(m.Reg))
		op := c.decodeOperand(*m)
		cycles += c.writeOperand16(op, v)
	case "MOV_RM_SEG":
		// 0x8E: MOV Sreg, r/m16 - r/m value loaded into segment register.
		op := c.decodeOperand(*m)
		v, rc := c.readOperand16(op)
		c.setSeg(int(m.Reg), v)
		cycles += rc
	case "LEA":
		c.setReg16(m.Reg, c.effectiveOffset(*m))
	case "XCHG":
		cycles += c.execXCHG(e, m)
	case "TEST":
		cycles += c.execTEST(e, m, opcode)
	case "INC":
		cycles += c.execINCDEC(e, m, opcode, true)
	case "DEC":
		cycles += c.execINCDEC(e, m, opcode, false)
	case "PUSH":
		cycles += c.execPUSH(e, m, opcode)
	case "POP":
		cycles += c.execPOP(e, m, opcode)
	case "PUSH_ES":
		cycles += c.push16(c.ES)
	case "POP_ES":
		v, rc := c.pop16()
		c.ES = v
		cycles += rc
	case "PUSH_CS":
		cycles += c.push16(c.CS)
	case "PUSH_SS":
		cycles += c.push16(c.SS)
	case "POP_SS":
		v, rc := c.pop16()
		c.SS = v
		cycles += rc
	case "PUSH_DS":
		cycles += c.push16(c.DS)
	case "POP_DS":
		v, rc := c.pop16()
		c.DS = v
		cycles += rc
	case "NOP", "CMC":
		if e.Mnemonic == "CMC" {
			c.setFlag(FlagCF, !c.getFlag(FlagCF))
		}
	case "CBW":
		if c.AL()&0x80 != 0 {
			c.SetAH(0xFF)
		} else {
			c.SetAH(0)
		}
	case "CWD":
		if c.AX&0x8000 != 0 {
			c.DX = 0xFFFF
		} else {
			c.DX = 0
		}
	case "PUSHF":
		cycles += c.push16(c.Flags)
	case "POPF":
		v, rc := c.pop16()
		c.Flags = normalizeFlags(v)
		cycles += rc
	case "CLC":
		c.setFlag(FlagCF, false)
	case "STC":
		c.setFlag(FlagCF, true)
	case "CLI":
		c.setFlag(FlagIF, false)
	case "STI":
		// STI's interrupt-enable takes effect after the *next*
		// instruction retires (spec §8 "an STI delays interrupt
		// sampling by one instruction"); stiDelay is consumed by
		// checkInterruptsAndTraps.
		c.setFlag(FlagIF, true)
		c.stiDelay = true
	case "CLD":
		c.setFlag(FlagDF, false)
	case "STD":
		c.setFlag(FlagDF, true)
	case "HLT":
		c.Halted = true
	case "JMP_REL8":
		imm, ic := c.fetchImm8()
		cycles += ic
		d := int8(imm)
		c.IP = uint16(int32(c.IP) + int32(d))
		c.flushPrefetch()
	case "JMP_REL16":
		imm, ic := c.fetchImm16()
		cycles += ic
		d := int16(imm)
		c.IP = uint16(int32(c.IP) + int32(d))
		c.flushPrefetch()
	case "CALL_REL16":
		imm, ic := c.fetchImm16()
		cycles += ic
		d := int16(imm)
		cycles += c.push16(c.IP)
		c.IP = uint16(int32(c.IP) + int32(d))
		c.flushPrefetch()
	case "RETN":
		v, rc := c.pop16()
		c.IP = v
		cycles += rc
		c.flushPrefetch()
	case "RETN_IMM16":
		n, ic := c.fetchImm16()
		v, rc := c.pop16()
		c.IP = v
		c.SP += n
		cycles += ic + rc
		c.flushPrefetch()
	case "LOOP", "LOOPZ", "LOOPNZ", "JCXZ":
		cycles += c.execLoop(e)
	case "IN":
		cycles += c.execIN(e)
	case "OUT":
		cycles += c.execOUT(e)
	case "INT3":
		c.raiseInterrupt(3, false)
	case "INT":
		vec, ic := c.fetchImm8()
		cycles += ic
		if vec == 0xFC && c.serviceInterruptEnabled {
			c.handleServiceInterrupt()
		} else {
			c.raiseInterrupt(vec, false)
		}
	case "INTO":
		if c.getFlag(FlagOF) {
			c.raiseInterrupt(4, false)
		}
	case "IRET":
		ip, c1 := c.pop16()
		cs, c2 := c.pop16()
		fl, c3 := c.pop16()
		c.IP, c.CS, c.Flags = ip, cs, normalizeFlags(fl)
		cycles += c1 + c2 + c3
		c.flushPrefetch()
	case "JO", "JNO", "JB", "JNB", "JZ", "JNZ", "JBE", "JA", "JS", "JNS",
		"JP", "JNP", "JL", "JGE", "JLE", "JG":
		imm, ic := c.fetchImm8()
		cycles += ic
		d := int8(imm)
		if jccTaken(c, e.Mnemonic) {
			c.IP = uint16(int32(c.IP) + int32(d))
			c.flushPrefetch()
		}
	case "NOT":
		cycles += c.execNOT(e, m)
	case "NEG":
		cycles += c.execNEG(e, m)
	case "MUL", "IMUL":
		cycles += c.execMUL(e, m, e.Mnemonic == "IMUL")
	case "DIV", "IDIV":
		cycles += c.execDIV(e, m, e.Mnemonic == "IDIV")
	case "ROL", "ROR", "RCL", "RCR", "SHL", "SHR", "SAR":
		cycles += c.execShiftRotate(e, m, opcode)
	case "CALL_RM", "JMP_RM":
		op := c.decodeOperand(*m)
		v, rc := c.readOperand16(op)
		if e.Mnemonic == "CALL_RM" {
			cycles += c.push16(c.IP)
		}
		c.IP = v
		cycles += rc
		c.flushPrefetch()
	case "CALLF_RM", "JMPF_RM":
		op := c.decodeOperand(*m)
		if op.isMemory {
			newIP, rc1 := c.readMem16(op.addr)
			newCS, rc2 := c.readMem16(op.addr + 2)
			if e.Mnemonic == "CALLF_RM" {
				cycles += c.push16(c.CS)
				cycles += c.push16(c.IP)
			}
			c.CS, c.IP = newCS, newIP
			cycles += rc1 + rc2
		}
		c.flushPrefetch()
	default:
		// Unmodelled opcode: treated as a no-op costing the entry's
		// BaseCycles rather than a panic, matching spec §4.1 "the CPU
		// never fails".
	}
	return cycles
}

func jccTaken(c *CPU, mnemonic string) bool {
	switch mnemonic {
	case "JO":
		return c.getFlag(FlagOF)
	case "JNO":
		return !c.getFlag(FlagOF)
	case "JB":
		return c.getFlag(FlagCF)
	case "JNB":
		return !c.getFlag(FlagCF)
	case "JZ":
		return c.getFlag(FlagZF)
	case "JNZ":
		return !c.getFlag(FlagZF)
	case "JBE":
		return c.getFlag(FlagCF) || c.getFlag(FlagZF)
	case "JA":
		return !c.getFlag(FlagCF) && !c.getFlag(FlagZF)
	case "JS":
		return c.getFlag(FlagSF)
	case "JNS":
		return !c.getFlag(FlagSF)
	case "JP":
		return c.getFlag(FlagPF)
	case "JNP":
		return !c.getFlag(FlagPF)
	case "JL":
		return c.getFlag(FlagSF) != c.getFlag(FlagOF)
	case "JGE":
		return c.getFlag(FlagSF) == c.getFlag(FlagOF)
	case "JLE":
		return c.getFlag(FlagZF) || (c.getFlag(FlagSF) != c.getFlag(FlagOF))
	case "JG":
		return !c.getFlag(FlagZF) && (c.getFlag(FlagSF) == c.getFlag(FlagOF))
	}
	return false
}
