package disasm

import "fmt"

var reg16Names = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
var reg8Names = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var segNames = [4]string{"es", "cs", "ss", "ds"}
var eaNames = [8]string{"bx+si", "bx+di", "bp+si", "bp+di", "si", "di", "bp", "bx"}

// Instruction is the result of decoding one instruction for display
// purposes: the form the debugger and instruction-history ring (spec
// §4.7) both print.
type Instruction struct {
	Addr    uint32
	Bytes   []byte
	Text    string
	Length  int
	Entry   Entry
	ModRM   *ModRM
}

// formatImm prints a displacement/immediate the way a widely used
// reference decoder (NASM-style) does: negative values rendered with a
// leading '-' rather than as their unsigned two's-complement hex form,
// so round-trip diffing against reference disassembly output is stable
// (spec §4.6, §8 "Disassemble(assemble(x)) == x").
func formatImm(v int32) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", -v)
	}
	return fmt.Sprintf("0x%x", v)
}

func formatEA(seg string, m ModRM) string {
	if m.Mod == 0 && m.RM == 6 {
		return fmt.Sprintf("[%s:%s]", seg, formatImm(int32(m.Disp)))
	}
	base := eaNames[m.RM]
	if m.DispSize == 0 || m.Disp == 0 {
		return fmt.Sprintf("[%s:%s]", seg, base)
	}
	return fmt.Sprintf("[%s:%s%s]", seg, base, formatImm(int32(m.Disp)))
}

// Disassemble decodes one instruction from data (no prefixes beyond
// segment overrides/REP, matching the subset internal/cpu executes) and
// renders it as text, returning the instruction length in bytes.
func Disassemble(data []byte, addr uint32) Instruction {
	start := 0
	forcedSeg := SegNone
	rep := ""

	for start < len(data) {
		switch data[start] {
		case 0x26:
			forcedSeg = SegES
			start++
		case 0x2E:
			forcedSeg = SegCS
			start++
		case 0x36:
			forcedSeg = SegSS
			start++
		case 0x3E:
			forcedSeg = SegDS
			start++
		case 0xF0:
			start++
		case 0xF2:
			rep = "repne "
			start++
		case 0xF3:
			rep = "rep "
			start++
		default:
			goto decoded
		}
	}
decoded:
	if start >= len(data) {
		return Instruction{Addr: addr, Text: "(truncated)", Length: len(data)}
	}
	opcode := data[start]
	entry := OpcodeTable[opcode]
	inst := Instruction{Addr: addr, Entry: entry}
	pos := start + 1

	if !entry.Valid {
		inst.Text = fmt.Sprintf("db 0x%02x", opcode)
		inst.Length = pos
		inst.Bytes = data[:min(pos, len(data))]
		return inst
	}

	seg := "ds"
	if forcedSeg != SegNone {
		seg = segNames[forcedSeg]
	}

	mnemonic := entry.Mnemonic
	var modrm *ModRM
	if entry.IsGroup || needsModRM(entry) {
		m := DecodeModRM(data, pos)
		modrm = &m
		if entry.IsGroup {
			entry = GroupTable[opcode][m.Reg]
			mnemonic = entry.Mnemonic
		}
		if m.Mod == 2 || (m.Mod == 1) {
			// BP-based EAs default to SS, not DS, when no override given.
		}
		if forcedSeg == SegNone {
			if base, _, usesBP := m.EABaseIndex(); usesBP || base == RegBP {
				seg = "ss"
			}
		}
		pos += m.Consumed
	}

	operandText := func(kind OperandKind) string {
		switch kind {
		case OpReg16:
			return reg16Names[opcode&7]
		case OpReg8:
			return reg8Names[opcode&7]
		case OpModRMReg16:
			if modrm != nil {
				return reg16Names[modrm.Reg]
			}
		case OpModRMReg8:
			if modrm != nil {
				return reg8Names[modrm.Reg]
			}
		case OpRM16:
			if modrm != nil {
				if modrm.IsMemory {
					return formatEA(seg, *modrm)
				}
				return reg16Names[modrm.RM]
			}
		case OpRM8:
			if modrm != nil {
				if modrm.IsMemory {
					return formatEA(seg, *modrm)
				}
				return reg8Names[modrm.RM]
			}
		case OpImm8:
			if pos < len(data) {
				v := formatImm(int32(int8(data[pos])))
				pos++
				return v
			}
		case OpImm16:
			if pos+1 < len(data) {
				v := int32(uint16(data[pos]) | uint16(data[pos+1])<<8)
				pos += 2
				return formatImm(v)
			}
		case OpRel8:
			if pos < len(data) {
				d := int8(data[pos])
				pos++
				return fmt.Sprintf("0x%x", uint32(int32(addr)+int32(pos)+int32(d)))
			}
		case OpRel16:
			if pos+1 < len(data) {
				d := int16(uint16(data[pos]) | uint16(data[pos+1])<<8)
				pos += 2
				return fmt.Sprintf("0x%x", uint32(int32(addr)+int32(pos)+int32(d)))
			}
		case OpAL:
			return "al"
		case OpAX:
			return "ax"
		case OpDX:
			return "dx"
		case OpCL:
			return "cl"
		case OpOne:
			return "1"
		}
		return ""
	}

	dst := operandText(entry.Dst)
	src := operandText(entry.Src)

	switch {
	case dst == "" && src == "":
		inst.Text = rep + mnemonic
	case src == "":
		inst.Text = fmt.Sprintf("%s%s %s", rep, mnemonic, dst)
	default:
		inst.Text = fmt.Sprintf("%s%s %s, %s", rep, mnemonic, dst, src)
	}
	if pos > len(data) {
		pos = len(data)
	}
	inst.Length = pos
	inst.Bytes = append([]byte(nil), data[:pos]...)
	inst.ModRM = modrm
	return inst
}

func needsModRM(e Entry) bool {
	switch e.Dst {
	case OpRM8, OpRM16, OpModRMReg8, OpModRMReg16, OpSegReg:
		return true
	}
	switch e.Src {
	case OpRM8, OpRM16, OpModRMReg8, OpModRMReg16, OpSegReg:
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
