// interrupts.go - NMI/INTR/trap sampling and interrupt dispatch (spec
// §4.1 "Checked at fixed micro-architectural points"). Grounded on the
// teacher's interrupt-line handling in cpu_x86_runner.go (where an IRQ
// line feeding an interrupt controller is polled once per instruction)
// but split out so the CPU core stays unaware of which device asserted
// the line - that's the bus/PIC's job.
package cpu

// RaiseNMI latches a non-maskable interrupt, sampled at the next
// instruction boundary regardless of IF. The latch is not sampled between
// the bus cycles of an instruction.
func (c *CPU) RaiseNMI() {
	c.nmiLatched = true
}

// SetINTR drives (or releases) the level-triggered INTR line the PIC
// holds high until its interrupt is acknowledged.
func (c *CPU) SetINTR(asserted bool) {
	c.intrLine = asserted
}

// GetINTR reports the current level of the INTR line, for debugger status
// views and scheduler tests that need to observe convergence without
// reaching into CPU internals.
func (c *CPU) GetINTR() bool {
	return c.intrLine
}

// EnableServiceInterrupt turns on interception of INT 0xFC as a host
// hook (spec §6.4: AH=1 attach debugger, AH=3 quit) instead of vectoring
// it through the guest's real-mode IVT - no BIOS or DOS on real hardware
// ever populates vector 0xFC, so a real ISR there would never return
// control sensibly.
func (c *CPU) EnableServiceInterrupt(enabled bool) {
	c.serviceInterruptEnabled = enabled
}

// checkInterruptsAndTraps samples pending events in priority order - NMI,
// then the single-step trap, then the maskable INTR line - and dispatches
// at most one of them. The STI delay (latched by the STI handler in
// exec.go) suppresses trap and INTR sampling for exactly one call.
func (c *CPU) checkInterruptsAndTraps() (StepResult, bool) {
	suppressed := c.stiDelay
	c.stiDelay = false

	if c.nmiLatched {
		c.nmiLatched = false
		cycles := c.raiseInterrupt(2, true)
		c.Cycles += uint64(cycles)
		return StepResult{Cycles: cycles, CSIP: c.linearCSIP(), NMI: true}, true
	}

	if c.trapLatched && !suppressed {
		c.trapLatched = false
		cycles := c.raiseInterrupt(1, false)
		c.Cycles += uint64(cycles)
		return StepResult{Cycles: cycles, CSIP: c.linearCSIP(), Trap: true}, true
	}

	if c.getFlag(FlagIF) && c.intrLine && !suppressed {
		vec, ackCycles := c.interruptAck()
		cycles := ackCycles + c.raiseInterrupt(vec, true)
		c.Cycles += uint64(cycles)
		return StepResult{Cycles: cycles, CSIP: c.linearCSIP(), HWIRQ: true}, true
	}

	return StepResult{}, false
}

// raiseInterrupt performs the documented hardware-interrupt-entry
// sequence: push FLAGS, CS, IP, clear TF and IF, then load CS:IP from
// the 4-byte real-mode IVT entry at vector*4 (spec §4.1 "Hardware
// interrupt entry pushes FLAGS, CS, IP; clears TF and IF").
func (c *CPU) raiseInterrupt(vector byte, hw bool) int {
	cycles := c.push16(c.Flags)
	cycles += c.push16(c.CS)
	cycles += c.push16(c.IP)
	c.setFlag(FlagTF, false)
	c.setFlag(FlagIF, false)

	lo, c1 := c.readMem16(uint32(vector) * 4)
	hi, c2 := c.readMem16(uint32(vector)*4 + 2)
	cycles += c1 + c2
	c.IP = lo
	c.CS = hi
	c.flushPrefetch()
	return cycles
}

// handleServiceInterrupt intercepts INT 0xFC before it reaches
// raiseInterrupt - there is no guest ISR to vector to.
func (c *CPU) handleServiceInterrupt() {
	switch c.AH() {
	case 1:
		c.reportHalt(HaltReason{Kind: "service-attach", Addr: c.linearCSIP(), Message: "debugger attach requested"})
	case 3:
		c.reportHalt(HaltReason{Kind: "service-quit", Addr: c.linearCSIP(), Message: "quit requested"})
		c.running = false
	}
}

func (c *CPU) reportHalt(reason HaltReason) {
	select {
	case c.haltChan <- reason:
	default:
	}
}
