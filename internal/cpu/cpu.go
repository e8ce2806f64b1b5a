// cpu.go - top-level fetch/decode/execute loop (spec §4.1). Grounded on
// the teacher's CPUX86Runner.Step/Execute loop (cpu_x86_runner.go) but
// restructured so one call advances exactly one 8086 "instruction step"
// (one full instruction, or one REP-string iteration, or one HLT nop-
// tick) and returns the T-cycles it consumed, matching spec §4.3's
// scheduler contract.
package cpu

import (
	"fmt"

	"github.com/martypc-go/martypc/internal/disasm"
)

type repState struct {
	entry disasm.Entry
	seg   int
	mode  int // 1 = REP/REPE, 2 = REPNE
}

type executionUnit struct {
	cpu *CPU
}

// StepResult reports what one StepInstruction call did, for the
// instruction-history ring (spec §4.7).
type StepResult struct {
	Cycles     int
	CSIP       uint32
	Bytes      []byte
	Disasm     string
	HWIRQ      bool
	Trap       bool
	NMI        bool
	JumpTaken  bool
	HaltReason *HaltReason
}

// StepInstruction advances the CPU by exactly one observable step: a
// full instruction, one REP-string iteration, or (if halted) one idle
// tick while still driving BIU T-cycles so the scheduler keeps devices
// ticking (spec §4.1 "HLT... still drives T-cycles").
func (c *CPU) StepInstruction() StepResult {
	if c.Halted {
		return c.stepHalted()
	}

	if res, delivered := c.checkInterruptsAndTraps(); delivered {
		return res
	}

	var res StepResult
	if c.pendingRep != nil {
		res = c.stepRepIteration()
	} else {
		res = c.fetchDecodeExecute()
	}
	c.armTrap()
	return res
}

// armTrap latches the single-step trap for the next StepInstruction call
// if TF is set as of this instruction's completion (spec §4.1). It does
// not touch the STI delay - checkInterruptsAndTraps is what reads and
// clears it to skip one round of sampling.
func (c *CPU) armTrap() {
	if c.getFlag(FlagTF) {
		c.trapLatched = true
	}
}

func (c *CPU) stepHalted() StepResult {
	cycles := 2
	c.Cycles += uint64(cycles)
	if res, delivered := c.checkInterruptsAndTraps(); delivered {
		c.Halted = false
		return res
	}
	return StepResult{Cycles: cycles, CSIP: c.linearCSIP()}
}

func (c *CPU) fetchDecodeExecute() StepResult {
	startCSIP := c.linearCSIP()
	cycles := 0
	c.segOverride = disasm.SegNone
	c.repMode = 0
	c.lockPrefix = false

	var opcode byte
	for {
		b, fc := c.fetchByte()
		cycles += fc
		c.IP++
		switch b {
		case 0x26:
			c.segOverride = disasm.SegES
			continue
		case 0x2E:
			c.segOverride = disasm.SegCS
			continue
		case 0x36:
			c.segOverride = disasm.SegSS
			continue
		case 0x3E:
			c.segOverride = disasm.SegDS
			continue
		case 0xF0:
			c.lockPrefix = true
			continue
		case 0xF2:
			c.repMode = 2
			continue
		case 0xF3:
			c.repMode = 1
			continue
		}
		opcode = b
		break
	}

	entry := disasm.OpcodeTable[opcode]
	if !entry.Valid {
		return c.offRails(startCSIP, opcode)
	}

	var modrm *disasm.ModRM
	if entry.IsGroup || needsModRMFetch(entry) {
		m, mc := c.fetchModRM()
		modrm = &m
		cycles += mc
		if entry.IsGroup {
			entry = disasm.GroupTable[opcode][m.Reg]
		}
	}

	if isStringOp(entry.Mnemonic) {
		if c.repMode == 0 {
			cycles += c.execStringOp(entry.Mnemonic)
			c.Cycles += uint64(cycles)
			return StepResult{Cycles: cycles, CSIP: startCSIP, Disasm: entry.Mnemonic}
		}
		if c.CX == 0 {
			// REP with CX==0 executes zero iterations (documented 8086
			// behavior): instruction retires immediately.
			c.Cycles += uint64(cycles)
			return StepResult{Cycles: cycles, CSIP: startCSIP}
		}
		rs := &repState{entry: entry, seg: c.segOverride, mode: c.repMode}
		c.pendingRep = rs
		cycles += c.execStringOp(entry.Mnemonic)
		c.CX--
		if c.repTerminates(rs) {
			c.pendingRep = nil
		}
		c.Cycles += uint64(cycles)
		return StepResult{Cycles: cycles, CSIP: startCSIP, Disasm: entry.Mnemonic}
	}

	execCycles := c.execute(entry, modrm, opcode)
	cycles += execCycles
	c.Cycles += uint64(cycles)
	return StepResult{Cycles: cycles, CSIP: startCSIP, Disasm: entry.Mnemonic}
}

func (c *CPU) stepRepIteration() StepResult {
	rs := c.pendingRep
	c.segOverride = rs.seg
	cycles := c.execStringOp(rs.entry.Mnemonic)
	c.CX--
	if c.repTerminates(rs) {
		c.pendingRep = nil
	}
	c.Cycles += uint64(cycles)
	return StepResult{Cycles: cycles, CSIP: c.linearCSIP(), Disasm: rs.entry.Mnemonic}
}

// repTerminates checks the documented REP-family stop conditions: CX==0
// always stops the loop; CMPS/SCAS additionally stop on the ZF
// condition their prefix (REPE vs REPNE) names (spec's REP MOVS
// interruptibility scenario generalizes to all REP-string stop checks).
func (c *CPU) repTerminates(rs *repState) bool {
	if c.CX == 0 {
		return true
	}
	switch rs.entry.Mnemonic {
	case "CMPSB", "CMPSW", "SCASB", "SCASW":
		wantZF := rs.mode == 1 // REP/REPE terminates when ZF clears
		return wantZF != c.getFlag(FlagZF)
	}
	return false
}

// fetchModRM reads the ModR/M byte and any displacement bytes it implies,
// returning the real bus cost of each byte fetched (zero for any byte the
// prefetch queue already held) alongside the decoded fields - these bytes
// are part of the instruction stream like any other, so their cost is
// charged the same way fetchByte's caller charges the opcode byte.
func (c *CPU) fetchModRM() (disasm.ModRM, int) {
	b0, cycles := c.fetchByte()
	c.IP++
	mod := b0 >> 6
	rm := b0 & 7
	m := disasm.ModRM{Mod: mod, Reg: (b0 >> 3) & 7, RM: rm, Consumed: 1}
	if mod == 3 {
		return m, cycles
	}
	m.IsMemory = true
	dispSize := 0
	if mod == 0 && rm == 6 {
		dispSize = 2
	} else if mod == 1 {
		dispSize = 1
	} else if mod == 2 {
		dispSize = 2
	}
	m.DispSize = dispSize
	if dispSize == 1 {
		d, dc := c.fetchByte()
		c.IP++
		m.Disp = int16(int8(d))
		cycles += dc
	} else if dispSize == 2 {
		lo, lc := c.fetchByte()
		c.IP++
		hi, hc := c.fetchByte()
		c.IP++
		m.Disp = int16(uint16(lo) | uint16(hi)<<8)
		cycles += lc + hc
	}
	return m, cycles
}

func (c *CPU) fetchImm8() (byte, int) {
	v, cycles := c.fetchByte()
	c.IP++
	return v, cycles
}

func (c *CPU) fetchImm16() (uint16, int) {
	lo, c1 := c.fetchByte()
	c.IP++
	hi, c2 := c.fetchByte()
	c.IP++
	return uint16(lo) | uint16(hi)<<8, c1 + c2
}

func needsModRMFetch(e disasm.Entry) bool {
	switch e.Dst {
	case disasm.OpRM8, disasm.OpRM16, disasm.OpModRMReg8, disasm.OpModRMReg16, disasm.OpSegReg:
		return true
	}
	switch e.Src {
	case disasm.OpRM8, disasm.OpRM16, disasm.OpModRMReg8, disasm.OpModRMReg16, disasm.OpSegReg:
		return true
	}
	return false
}

func isStringOp(mnemonic string) bool {
	switch mnemonic {
	case "MOVSB", "MOVSW", "CMPSB", "CMPSW", "STOSB", "STOSW", "LODSB", "LODSW", "SCASB", "SCASW":
		return true
	}
	return false
}

// offRails reports an unrecognized byte sequence as a halt-reason (spec
// §4.1 "off_rails_detection") rather than panicking - the CPU never
// fails, it reports (spec §4.1 "Failure semantics").
func (c *CPU) offRails(csip uint32, opcode byte) StepResult {
	reason := HaltReason{Kind: "off-rails", Addr: csip, Message: fmt.Sprintf("undefined opcode 0x%02X", opcode)}
	c.reportHalt(reason)
	if c.OnHalt == OnHaltStop {
		c.Halted = true
	}
	return StepResult{Cycles: 2, CSIP: csip, HaltReason: &reason}
}

// HaltReasons returns the channel that off-rails/invalid-halt/breakpoint
// conditions are reported on (spec §4.1, §7).
func (c *CPU) HaltReasons() <-chan HaltReason { return c.haltChan }

// flushPrefetch is called by every control-flow-mutating instruction
// (jumps, calls, returns, interrupts, CS loads) per spec §4.1.
func (c *CPU) flushPrefetch() {
	c.biu.flush(c.linearCSIP())
}
