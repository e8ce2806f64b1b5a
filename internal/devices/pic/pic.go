// Package pic implements an 8259A Programmable Interrupt Controller
// (spec §4.4 C4). Register and command-word bit layouts are grounded on
// the PIC_ICW1/PIC_ICW4/PIC_OCW2/PIC_OCW3 constants retrieved alongside
// the teacher's pack; the device shape (Tick/IRQLine/ReadIO/WriteIO)
// follows internal/bus.Device and internal/bus.IOPort.
package pic

import "github.com/martypc-go/martypc/internal/logging"

const (
	icw1IC4  byte = 0x01
	icw1Init byte = 0x10

	ocw2EOI byte = 0x20
	ocw2SL  byte = 0x40
	ocw2R   byte = 0x80

	ocw3RR   byte = 0x02
	ocw3RIS  byte = 0x01
	ocw3ID   byte = 0x08
	ocw3ESMM byte = 0x20
	ocw3SMM  byte = 0x40
)

type initState int

const (
	stateReady initState = iota
	stateICW2
	stateICW3
	stateICW4
)

// PIC models one 8259A. Two are wired together (master/slave) for the
// PC/XT's cascaded configuration; Cascade points the master at its slave.
type PIC struct {
	IRR, ISR, IMR byte
	vectorBase    byte
	autoEOI       bool
	rotatePriority bool
	specialMask   bool
	readISR       bool // OCW3 read-select: ISR if true, else IRR

	state            initState
	cascadeNeedsICW4 bool
	cascade          *PIC // nil on a standalone or slave controller
	slaveIRQ         int  // which master IRQ line the slave is cascaded on, -1 if none

	log *logging.Logger
}

func New(name string) *PIC {
	return &PIC{IMR: 0xFF, slaveIRQ: -1, log: logging.New(name)}
}

// Cascade wires slave as this (master) PIC's downstream controller on
// IRQ line irq (conventionally 2 on PC/AT hardware).
func (p *PIC) Cascade(slave *PIC, irq int) {
	p.cascade = slave
	slave.slaveIRQ = irq
}

// RaiseIRQ sets an edge-triggered interrupt request line.
func (p *PIC) RaiseIRQ(line int) {
	p.IRR |= 1 << uint(line)
}

// ClearIRQ lowers the request line (used by level-sensitive devices that
// drive IRQ low again once serviced).
func (p *PIC) ClearIRQ(line int) {
	p.IRR &^= 1 << uint(line)
}

// Pending reports whether any unmasked request is outstanding, for the
// CPU's INTR-line sampling.
func (p *PIC) Pending() bool {
	if p.cascade != nil && p.cascade.Pending() {
		return true
	}
	return p.IRR&^p.IMR != 0
}

// Acknowledge performs the two-cycle INTA handshake's payload: it picks
// the highest-priority unmasked request, moves it from IRR to ISR, and
// returns the vector byte (spec §4.1 "INTA is a two-cycle bus
// transaction addressed at the PIC").
func (p *PIC) Acknowledge() byte {
	line := p.highestPriority()
	if line < 0 {
		return p.vectorBase + 7 // spurious IRQ7, conventionally
	}
	if line == p.cascadeLine() && p.cascade != nil {
		return p.cascade.Acknowledge()
	}
	p.IRR &^= 1 << uint(line)
	if !p.autoEOI {
		p.ISR |= 1 << uint(line)
	}
	return p.vectorBase + byte(line)
}

func (p *PIC) cascadeLine() int {
	if p.cascade == nil {
		return -1
	}
	return p.cascade.slaveIRQ
}

func (p *PIC) highestPriority() int {
	active := p.IRR &^ p.IMR
	for i := 0; i < 8; i++ {
		if active&(1<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}

// ReadIO implements internal/bus.IOPort.
func (p *PIC) ReadIO(port uint16) byte {
	if port&1 == 0 {
		if p.readISR {
			return p.ISR
		}
		return p.IRR
	}
	return p.IMR
}

// WriteIO implements internal/bus.IOPort, dispatching ICWs during
// initialization and OCWs afterward per the 8259A's port-0/port-1,
// bit-4/bit-3 discrimination rules.
func (p *PIC) WriteIO(port uint16, value byte) {
	if port&1 == 0 {
		p.writeCommandPort(value)
		return
	}
	p.writeDataPort(value)
}

func (p *PIC) writeCommandPort(value byte) {
	if value&icw1Init != 0 {
		p.state = stateICW2
		p.IRR, p.ISR, p.IMR = 0, 0, 0
		p.cascadeNeedsICW4 = value&icw1IC4 != 0
		return
	}
	// OCW2 or OCW3.
	if value&ocw3ID != 0 {
		p.readISR = value&ocw3RIS != 0
		if value&ocw3ESMM != 0 {
			p.specialMask = value&ocw3SMM != 0
		}
		return
	}
	if value&ocw2EOI != 0 {
		p.rotatePriority = value&ocw2R != 0
		if value&ocw2SL != 0 {
			line := int(value & 0x07)
			p.ISR &^= 1 << uint(line)
		} else {
			p.clearHighestISR()
		}
	}
}

func (p *PIC) clearHighestISR() {
	for i := 0; i < 8; i++ {
		if p.ISR&(1<<uint(i)) != 0 {
			p.ISR &^= 1 << uint(i)
			return
		}
	}
}

func (p *PIC) writeDataPort(value byte) {
	switch p.state {
	case stateICW2:
		p.vectorBase = value &^ 0x07
		if p.cascadeNeedsICW3() {
			p.state = stateICW3
		} else if p.cascadeNeedsICW4 {
			p.state = stateICW4
		} else {
			p.state = stateReady
		}
	case stateICW3:
		// Cascade wiring byte: which lines have slaves (master) or which
		// master line this slave answers on. Topology is set via
		// Cascade() at machine-graph build time, so this byte is
		// accepted but not re-derived.
		if p.cascadeNeedsICW4 {
			p.state = stateICW4
		} else {
			p.state = stateReady
		}
	case stateICW4:
		p.autoEOI = value&0x02 != 0
		p.state = stateReady
	default:
		p.IMR = value
	}
}

func (p *PIC) cascadeNeedsICW3() bool {
	return p.cascade != nil || p.slaveIRQ >= 0
}
