// strings.go - string-instruction data movement (spec §4.1 string ops).
// CX bookkeeping and REP loop termination live in cpu.go; this file only
// moves bytes/words and advances SI/DI by the direction flag's stride,
// so the same code serves both a bare unprefixed string op and a single
// REP iteration.
package cpu

import "github.com/martypc-go/martypc/internal/disasm"

func (c *CPU) execStringOp(mnemonic string) int {
	srcSeg := c.segOverride
	if srcSeg == disasm.SegNone {
		srcSeg = disasm.SegDS
	}
	step8, step16 := int32(1), int32(2)
	if c.getFlag(FlagDF) {
		step8, step16 = -1, -2
	}

	cycles := 0
	switch mnemonic {
	case "MOVSB":
		v, rc := c.readMem8(Linear(c.getSeg(srcSeg), c.SI))
		cycles += rc
		cycles += c.writeMem8(Linear(c.ES, c.DI), v)
		c.SI = uint16(int32(c.SI) + step8)
		c.DI = uint16(int32(c.DI) + step8)
	case "MOVSW":
		v, rc := c.readMem16(Linear(c.getSeg(srcSeg), c.SI))
		cycles += rc
		cycles += c.writeMem16(Linear(c.ES, c.DI), v)
		c.SI = uint16(int32(c.SI) + step16)
		c.DI = uint16(int32(c.DI) + step16)
	case "CMPSB":
		a, rc1 := c.readMem8(Linear(c.getSeg(srcSeg), c.SI))
		b, rc2 := c.readMem8(Linear(c.ES, c.DI))
		cycles += rc1 + rc2
		c.setFlagsArith8(uint16(a)-uint16(b), a, b, true)
		c.SI = uint16(int32(c.SI) + step8)
		c.DI = uint16(int32(c.DI) + step8)
	case "CMPSW":
		a, rc1 := c.readMem16(Linear(c.getSeg(srcSeg), c.SI))
		b, rc2 := c.readMem16(Linear(c.ES, c.DI))
		cycles += rc1 + rc2
		c.setFlagsArith16(uint32(a)-uint32(b), a, b, true)
		c.SI = uint16(int32(c.SI) + step16)
		c.DI = uint16(int32(c.DI) + step16)
	case "STOSB":
		cycles += c.writeMem8(Linear(c.ES, c.DI), c.AL())
		c.DI = uint16(int32(c.DI) + step8)
	case "STOSW":
		cycles += c.writeMem16(Linear(c.ES, c.DI), c.AX)
		c.DI = uint16(int32(c.DI) + step16)
	case "LODSB":
		v, rc := c.readMem8(Linear(c.getSeg(srcSeg), c.SI))
		cycles += rc
		c.SetAL(v)
		c.SI = uint16(int32(c.SI) + step8)
	case "LODSW":
		v, rc := c.readMem16(Linear(c.getSeg(srcSeg), c.SI))
		cycles += rc
		c.AX = v
		c.SI = uint16(int32(c.SI) + step16)
	case "SCASB":
		b, rc := c.readMem8(Linear(c.ES, c.DI))
		cycles += rc
		c.setFlagsArith8(uint16(c.AL())-uint16(b), c.AL(), b, true)
		c.DI = uint16(int32(c.DI) + step8)
	case "SCASW":
		b, rc := c.readMem16(Linear(c.ES, c.DI))
		cycles += rc
		c.setFlagsArith16(uint32(c.AX)-uint32(b), c.AX, b, true)
		c.DI = uint16(int32(c.DI) + step16)
	}
	return cycles
}
