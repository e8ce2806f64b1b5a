package disasm

// ModRM holds a decoded ModR/M (+ optional displacement) byte sequence.
// EA, when IsMemory is true, is computed by the caller once base/index
// register values are known (decode is memory-state-independent here;
// the CPU's BIU resolves the actual effective address).
type ModRM struct {
	Mod, Reg, RM byte
	IsMemory     bool
	Disp         int16
	DispSize     int // 0, 1 or 2 bytes of displacement following ModRM
	Consumed     int // total bytes consumed including the ModR/M byte itself
}

// DecodeModRM decodes the ModR/M byte (and any trailing displacement) at
// data[offset], following 8086 addressing mode rules (no SIB byte — that
// is a 386 extension the original spec's 16-bit addressing predates).
func DecodeModRM(data []byte, offset int) ModRM {
	b := data[offset]
	m := ModRM{Mod: b >> 6, Reg: (b >> 3) & 7, RM: b & 7, Consumed: 1}

	if m.Mod == 3 {
		return m // register-direct, no memory operand
	}
	m.IsMemory = true

	switch {
	case m.Mod == 0 && m.RM == 6: // direct address, 16-bit displacement
		m.DispSize = 2
	case m.Mod == 1:
		m.DispSize = 1
	case m.Mod == 2:
		m.DispSize = 2
	}

	if m.DispSize == 1 {
		m.Disp = int16(int8(data[offset+1]))
		m.Consumed += 1
	} else if m.DispSize == 2 {
		m.Disp = int16(uint16(data[offset+1]) | uint16(data[offset+2])<<8)
		m.Consumed += 2
	}
	return m
}

// EABaseIndex returns which base/index registers (by getReg16 index, or
// -1) form the effective address for a memory ModR/M's RM field, and
// whether BP participates (BP-based EAs default to SS, not DS).
func (m ModRM) EABaseIndex() (base, index int, usesBP bool) {
	switch m.RM {
	case 0:
		return RegBX, RegSI, false
	case 1:
		return RegBX, RegDI, false
	case 2:
		return RegBP, RegSI, true
	case 3:
		return RegBP, RegDI, true
	case 4:
		return -1, RegSI, false
	case 5:
		return -1, RegDI, false
	case 6:
		if m.Mod == 0 {
			return -1, -1, false // direct address
		}
		return RegBP, -1, true
	case 7:
		return RegBX, -1, false
	}
	return -1, -1, false
}

// Register indices shared by disasm and cpu so ModRM.Reg/RM map directly
// onto getReg16/getReg8 lookups without a translation layer.
const (
	RegAX = 0
	RegCX = 1
	RegDX = 2
	RegBX = 3
	RegSP = 4
	RegBP = 5
	RegSI = 6
	RegDI = 7
)
