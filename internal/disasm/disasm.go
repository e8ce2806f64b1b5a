// Package disasm is the single source of truth for 8086/8088 opcode
// semantics shared by the CPU decoder (internal/cpu) and the debugger
// (spec §4.6: "Single source of truth for opcode semantics, used both
// by the CPU decoder and by the debugger"). It is grounded on the
// teacher's table-driven x86 decode in cpu_x86_ops.go/cpu_x86_grp.go,
// generalised from a flat 32-bit opcode dispatch-by-function-pointer
// table into a data table so the same entries can drive both execution
// and text disassembly.
package disasm

// OperandKind enumerates the operand-addressing shapes an instruction's
// operands can take.
type OperandKind int

const (
	OpNone OperandKind = iota
	OpReg8             // register encoded in opcode low 3 bits
	OpReg16
	OpRM8 // ModR/M addressed byte (register or memory)
	OpRM16
	OpImm8
	OpImm16
	OpRel8  // signed 8-bit displacement, IP-relative
	OpRel16 // signed 16-bit displacement, IP-relative
	OpSegReg
	OpModRMReg8  // ModR/M reg field, byte
	OpModRMReg16 // ModR/M reg field, word
	OpAL
	OpAX
	OpDX
	OpOne // implicit constant 1 (shift/rotate by 1)
	OpCL
	OpMoffs8
	OpMoffs16
)

// Entry describes one opcode's decode shape and semantics tag. Mnemonic
// is the dispatch key internal/cpu switches on to execute the instruction;
// the same field is what the disassembler prints.
type Entry struct {
	Mnemonic   string
	Dst, Src   OperandKind
	ForcedSeg  int // -1 = none (defaults to DS, or SS for BP-based EA)
	BaseCycles int
	IsGroup    bool // ModR/M reg field selects among GroupTable[opcode]
	Valid      bool
}

// SegOverride values used as ForcedSeg / prefix state (§4.1 "a segment
// override replaces the forced segment for the instruction").
const (
	SegNone = -1
	SegES   = 0
	SegCS   = 1
	SegSS   = 2
	SegDS   = 3
)

// OpcodeTable is indexed by the first non-prefix opcode byte.
var OpcodeTable [256]Entry

// GroupTable holds the secondary dispatch for opcodes whose ModR/M reg
// field selects the actual operation (0x80/0x81/0x83 arithmetic group,
// 0xF6/0xF7 unary group, 0xFE/0xFF INC/DEC/CALL/JMP/PUSH group,
// 0xD0-0xD3 shift/rotate group).
var GroupTable = map[byte][8]Entry{}

func reg(mnemonic string, dst, src OperandKind, cycles int) Entry {
	return Entry{Mnemonic: mnemonic, Dst: dst, Src: src, ForcedSeg: SegNone, BaseCycles: cycles, Valid: true}
}

func init() {
	aluMnemonics := []string{"ADD", "OR", "ADC", "SBB", "AND", "SUB", "XOR", "CMP"}
	for i, name := range aluMnemonics {
		base := byte(i * 8)
		OpcodeTable[base+0x00] = reg(name, OpRM8, OpModRMReg8, 3)
		OpcodeTable[base+0x01] = reg(name, OpRM16, OpModRMReg16, 3)
		OpcodeTable[base+0x02] = reg(name, OpModRMReg8, OpRM8, 3)
		OpcodeTable[base+0x03] = reg(name, OpModRMReg16, OpRM16, 3)
		OpcodeTable[base+0x04] = reg(name, OpAL, OpImm8, 4)
		OpcodeTable[base+0x05] = reg(name, OpAX, OpImm16, 4)
	}

	for i := byte(0); i < 8; i++ {
		OpcodeTable[0x40+i] = reg("INC", OpReg16, OpNone, 3)
		OpcodeTable[0x48+i] = reg("DEC", OpReg16, OpNone, 3)
		OpcodeTable[0x50+i] = reg("PUSH", OpReg16, OpNone, 15)
		OpcodeTable[0x58+i] = reg("POP", OpReg16, OpNone, 12)
		OpcodeTable[0xB0+i] = reg("MOV", OpReg8, OpImm8, 4)
		OpcodeTable[0xB8+i] = reg("MOV", OpReg16, OpImm16, 4)
	}

	jcc := []string{"JO", "JNO", "JB", "JNB", "JZ", "JNZ", "JBE", "JA", "JS", "JNS", "JP", "JNP", "JL", "JGE", "JLE", "JG"}
	for i, name := range jcc {
		OpcodeTable[0x70+byte(i)] = reg(name, OpRel8, OpNone, 16)
	}

	OpcodeTable[0x06] = reg("PUSH_ES", OpNone, OpNone, 14)
	OpcodeTable[0x07] = reg("POP_ES", OpNone, OpNone, 12)
	OpcodeTable[0x0E] = reg("PUSH_CS", OpNone, OpNone, 14)
	OpcodeTable[0x16] = reg("PUSH_SS", OpNone, OpNone, 14)
	OpcodeTable[0x17] = reg("POP_SS", OpNone, OpNone, 12)
	OpcodeTable[0x1E] = reg("PUSH_DS", OpNone, OpNone, 14)
	OpcodeTable[0x1F] = reg("POP_DS", OpNone, OpNone, 12)

	OpcodeTable[0x26] = reg("PREFIX_SEG_ES", OpNone, OpNone, 0)
	OpcodeTable[0x2E] = reg("PREFIX_SEG_CS", OpNone, OpNone, 0)
	OpcodeTable[0x36] = reg("PREFIX_SEG_SS", OpNone, OpNone, 0)
	OpcodeTable[0x3E] = reg("PREFIX_SEG_DS", OpNone, OpNone, 0)
	OpcodeTable[0xF0] = reg("PREFIX_LOCK", OpNone, OpNone, 0)
	OpcodeTable[0xF2] = reg("PREFIX_REPNE", OpNone, OpNone, 0)
	OpcodeTable[0xF3] = reg("PREFIX_REP", OpNone, OpNone, 0)

	OpcodeTable[0x80] = Entry{Mnemonic: "GRP1_8", Dst: OpRM8, Src: OpImm8, ForcedSeg: SegNone, IsGroup: true, Valid: true}
	OpcodeTable[0x81] = Entry{Mnemonic: "GRP1_16", Dst: OpRM16, Src: OpImm16, ForcedSeg: SegNone, IsGroup: true, Valid: true}
	OpcodeTable[0x83] = Entry{Mnemonic: "GRP1_16IMM8", Dst: OpRM16, Src: OpImm8, ForcedSeg: SegNone, IsGroup: true, Valid: true}
	OpcodeTable[0x84] = reg("TEST", OpRM8, OpModRMReg8, 3)
	OpcodeTable[0x85] = reg("TEST", OpRM16, OpModRMReg16, 3)
	OpcodeTable[0x86] = reg("XCHG", OpRM8, OpModRMReg8, 4)
	OpcodeTable[0x87] = reg("XCHG", OpRM16, OpModRMReg16, 4)
	OpcodeTable[0x88] = reg("MOV", OpRM8, OpModRMReg8, 2)
	OpcodeTable[0x89] = reg("MOV", OpRM16, OpModRMReg16, 2)
	OpcodeTable[0x8A] = reg("MOV", OpModRMReg8, OpRM8, 2)
	OpcodeTable[0x8B] = reg("MOV", OpModRMReg16, OpRM16, 2)
	OpcodeTable[0x8C] = reg("MOV_SEG_RM", OpRM16, OpSegReg, 2)
	OpcodeTable[0x8D] = reg("LEA", OpModRMReg16, OpRM16, 2)
	OpcodeTable[0x8E] = reg("MOV_RM_SEG", OpSegReg, OpRM16, 2)
	OpcodeTable[0x8F] = reg("POP", OpRM16, OpNone, 17)
	OpcodeTable[0x90] = reg("NOP", OpNone, OpNone, 3)
	OpcodeTable[0x98] = reg("CBW", OpNone, OpNone, 2)
	OpcodeTable[0x99] = reg("CWD", OpNone, OpNone, 5)
	OpcodeTable[0x9C] = reg("PUSHF", OpNone, OpNone, 14)
	OpcodeTable[0x9D] = reg("POPF", OpNone, OpNone, 12)
	OpcodeTable[0xA0] = reg("MOV", OpAL, OpMoffs8, 10)
	OpcodeTable[0xA1] = reg("MOV", OpAX, OpMoffs16, 10)
	OpcodeTable[0xA2] = reg("MOV", OpMoffs8, OpAL, 10)
	OpcodeTable[0xA3] = reg("MOV", OpMoffs16, OpAX, 10)
	OpcodeTable[0xA4] = reg("MOVSB", OpNone, OpNone, 18)
	OpcodeTable[0xA5] = reg("MOVSW", OpNone, OpNone, 18)
	OpcodeTable[0xA6] = reg("CMPSB", OpNone, OpNone, 22)
	OpcodeTable[0xA7] = reg("CMPSW", OpNone, OpNone, 22)
	OpcodeTable[0xA8] = reg("TEST", OpAL, OpImm8, 4)
	OpcodeTable[0xA9] = reg("TEST", OpAX, OpImm16, 4)
	OpcodeTable[0xAA] = reg("STOSB", OpNone, OpNone, 11)
	OpcodeTable[0xAB] = reg("STOSW", OpNone, OpNone, 11)
	OpcodeTable[0xAC] = reg("LODSB", OpNone, OpNone, 12)
	OpcodeTable[0xAD] = reg("LODSW", OpNone, OpNone, 12)
	OpcodeTable[0xAE] = reg("SCASB", OpNone, OpNone, 15)
	OpcodeTable[0xAF] = reg("SCASW", OpNone, OpNone, 15)
	OpcodeTable[0xC2] = reg("RETN_IMM16", OpImm16, OpNone, 24)
	OpcodeTable[0xC3] = reg("RETN", OpNone, OpNone, 20)
	OpcodeTable[0xC6] = reg("MOV", OpRM8, OpImm8, 10)
	OpcodeTable[0xC7] = reg("MOV", OpRM16, OpImm16, 10)
	OpcodeTable[0xCC] = reg("INT3", OpNone, OpNone, 52)
	OpcodeTable[0xCD] = reg("INT", OpImm8, OpNone, 51)
	OpcodeTable[0xCE] = reg("INTO", OpNone, OpNone, 53)
	OpcodeTable[0xCF] = reg("IRET", OpNone, OpNone, 32)
	OpcodeTable[0xD0] = Entry{Mnemonic: "SHROT1_8", Dst: OpRM8, Src: OpOne, IsGroup: true, Valid: true}
	OpcodeTable[0xD1] = Entry{Mnemonic: "SHROT1_16", Dst: OpRM16, Src: OpOne, IsGroup: true, Valid: true}
	OpcodeTable[0xD2] = Entry{Mnemonic: "SHROTCL_8", Dst: OpRM8, Src: OpCL, IsGroup: true, Valid: true}
	OpcodeTable[0xD3] = Entry{Mnemonic: "SHROTCL_16", Dst: OpRM16, Src: OpCL, IsGroup: true, Valid: true}
	OpcodeTable[0xE0] = reg("LOOPNZ", OpRel8, OpNone, 17)
	OpcodeTable[0xE1] = reg("LOOPZ", OpRel8, OpNone, 18)
	OpcodeTable[0xE2] = reg("LOOP", OpRel8, OpNone, 17)
	OpcodeTable[0xE3] = reg("JCXZ", OpRel8, OpNone, 18)
	OpcodeTable[0xE4] = reg("IN", OpAL, OpImm8, 10)
	OpcodeTable[0xE5] = reg("IN", OpAX, OpImm8, 10)
	OpcodeTable[0xE6] = reg("OUT", OpImm8, OpAL, 10)
	OpcodeTable[0xE7] = reg("OUT", OpImm8, OpAX, 10)
	OpcodeTable[0xE8] = reg("CALL_REL16", OpRel16, OpNone, 23)
	OpcodeTable[0xE9] = reg("JMP_REL16", OpRel16, OpNone, 15)
	OpcodeTable[0xEB] = reg("JMP_REL8", OpRel8, OpNone, 15)
	OpcodeTable[0xEC] = reg("IN", OpAL, OpDX, 8)
	OpcodeTable[0xED] = reg("IN", OpAX, OpDX, 8)
	OpcodeTable[0xEE] = reg("OUT", OpDX, OpAL, 8)
	OpcodeTable[0xEF] = reg("OUT", OpDX, OpAX, 8)
	OpcodeTable[0xF4] = reg("HLT", OpNone, OpNone, 2)
	OpcodeTable[0xF5] = reg("CMC", OpNone, OpNone, 2)
	OpcodeTable[0xF6] = Entry{Mnemonic: "GRP3_8", Dst: OpRM8, Src: OpNone, IsGroup: true, Valid: true}
	OpcodeTable[0xF7] = Entry{Mnemonic: "GRP3_16", Dst: OpRM16, Src: OpNone, IsGroup: true, Valid: true}
	OpcodeTable[0xF8] = reg("CLC", OpNone, OpNone, 2)
	OpcodeTable[0xF9] = reg("STC", OpNone, OpNone, 2)
	OpcodeTable[0xFA] = reg("CLI", OpNone, OpNone, 2)
	OpcodeTable[0xFB] = reg("STI", OpNone, OpNone, 2)
	OpcodeTable[0xFC] = reg("CLD", OpNone, OpNone, 2)
	OpcodeTable[0xFD] = reg("STD", OpNone, OpNone, 2)
	OpcodeTable[0xFE] = Entry{Mnemonic: "GRP4_8", Dst: OpRM8, Src: OpNone, IsGroup: true, Valid: true}
	OpcodeTable[0xFF] = Entry{Mnemonic: "GRP5_16", Dst: OpRM16, Src: OpNone, IsGroup: true, Valid: true}

	grp1_8 := [8]Entry{reg("ADD", OpRM8, OpImm8, 0), reg("OR", OpRM8, OpImm8, 0), reg("ADC", OpRM8, OpImm8, 0),
		reg("SBB", OpRM8, OpImm8, 0), reg("AND", OpRM8, OpImm8, 0), reg("SUB", OpRM8, OpImm8, 0),
		reg("XOR", OpRM8, OpImm8, 0), reg("CMP", OpRM8, OpImm8, 0)}
	GroupTable[0x80] = grp1_8
	grp1_16 := grp1_8
	for i := range grp1_16 {
		grp1_16[i].Dst = OpRM16
		grp1_16[i].Src = OpImm16
	}
	GroupTable[0x81] = grp1_16
	grp1_16imm8 := grp1_16
	for i := range grp1_16imm8 {
		grp1_16imm8[i].Src = OpImm8
	}
	GroupTable[0x83] = grp1_16imm8

	GroupTable[0xF6] = [8]Entry{
		reg("TEST", OpRM8, OpImm8, 5), reg("TEST", OpRM8, OpImm8, 5), reg("NOT", OpRM8, OpNone, 3),
		reg("NEG", OpRM8, OpNone, 3), reg("MUL", OpRM8, OpNone, 77), reg("IMUL", OpRM8, OpNone, 98),
		reg("DIV", OpRM8, OpNone, 90), reg("IDIV", OpRM8, OpNone, 112),
	}
	GroupTable[0xF7] = [8]Entry{
		reg("TEST", OpRM16, OpImm16, 5), reg("TEST", OpRM16, OpImm16, 5), reg("NOT", OpRM16, OpNone, 3),
		reg("NEG", OpRM16, OpNone, 3), reg("MUL", OpRM16, OpNone, 133), reg("IMUL", OpRM16, OpNone, 154),
		reg("DIV", OpRM16, OpNone, 162), reg("IDIV", OpRM16, OpNone, 184),
	}
	GroupTable[0xFE] = [8]Entry{reg("INC", OpRM8, OpNone, 3), reg("DEC", OpRM8, OpNone, 3)}
	GroupTable[0xFF] = [8]Entry{
		reg("INC", OpRM16, OpNone, 3), reg("DEC", OpRM16, OpNone, 3), reg("CALL_RM", OpRM16, OpNone, 21),
		reg("CALLF_RM", OpRM16, OpNone, 37), reg("JMP_RM", OpRM16, OpNone, 18), reg("JMPF_RM", OpRM16, OpNone, 24),
		reg("PUSH", OpRM16, OpNone, 16),
	}
	shrot := [8]Entry{reg("ROL", OpRM8, OpNone, 2), reg("ROR", OpRM8, OpNone, 2), reg("RCL", OpRM8, OpNone, 2),
		reg("RCR", OpRM8, OpNone, 2), reg("SHL", OpRM8, OpNone, 2), reg("SHR", OpRM8, OpNone, 2),
		reg("SHL", OpRM8, OpNone, 2), reg("SAR", OpRM8, OpNone, 2)}
	GroupTable[0xD0] = shrot
	shrotCL := shrot
	for i := range shrotCL {
		shrotCL[i].Src = OpCL
	}
	GroupTable[0xD2] = shrotCL
	shrot16 := shrot
	for i := range shrot16 {
		shrot16[i].Dst = OpRM16
	}
	GroupTable[0xD1] = shrot16
	shrot16CL := shrotCL
	for i := range shrot16CL {
		shrot16CL[i].Dst = OpRM16
	}
	GroupTable[0xD3] = shrot16CL
}
