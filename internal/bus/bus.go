// Package bus implements the system bus (spec §4.2): 20-bit address
// dispatch, I/O port dispatch, wait-state arbitration, DRAM-refresh
// scheduling and the patch/checkpoint machinery that rides on memory
// flags. It generalises the teacher's page-keyed IORegion mapping
// (machine_bus.go/memory_bus.go MapIO) from a single flat 32-bit space
// with one callback pair into the 8088's 20-bit space with independent
// memory and I/O port address spaces, since a real 8088 has both.
package bus

import (
	"github.com/martypc-go/martypc/internal/logging"
	"github.com/martypc-go/martypc/internal/memmap"
)

// Device is the uniform capability every peripheral chip exposes to the
// scheduler and bus (spec §3.3). Devices that don't use a given surface
// (e.g. a PIT has no MMIO) simply return zero values; CGA-class adapters
// implement memmap.MMIODevice directly for VRAM.
type Device interface {
	Tick(n int)
	IRQLine() (line int, asserted bool)
	DMARequest() (channel int, asserted bool)
}

// IOPort is the narrower interface devices register against the I/O port
// space (separate from MMIO, which goes through memmap.MMIODevice).
type IOPort interface {
	ReadIO(port uint16) byte
	WriteIO(port uint16, value byte)
}

type ioRegistration struct {
	start, end uint16
	handler    IOPort
}

// BusOp enumerates the mutually exclusive bus cycle kinds (spec §4.1
// "Bus cycle ordering").
type BusOp int

const (
	OpNone BusOp = iota
	OpCodeFetch
	OpMemRead
	OpMemWrite
	OpIORead
	OpIOWrite
	OpInterruptAck
	OpHalt
	OpPassive
)

// RefreshPeriod is the DRAM refresh interval in system ticks on PC/XT
// class hardware (spec §4.2: "~72 cycles between refreshes on PC/XT").
const RefreshPeriod = 72

// Patch describes a ROM patch applied at load time or triggered during
// execution (spec §4.2, §6.2).
type Patch struct {
	TriggerAddr uint32
	TargetAddr  uint32
	Bytes       []byte
	Reversible  bool

	original []byte
	applied  bool
}

// Checkpoint is a logged hit point (spec §4.2, §6.2).
type Checkpoint struct {
	Addr        uint32
	Level       logging.Level
	Description string
}

// Bus is the system bus: the shared resource every component-currently-
// being-ticked has exclusive access to for the duration of its tick call
// (spec §5).
type Bus struct {
	Mem *memmap.AddressSpace

	ioPorts []ioRegistration

	// DRAM refresh (spec §4.2). RefreshEnabled is the "dram_refresh_simulation"
	// config knob; when true the bus steals one bus cycle from the CPU every
	// RefreshPeriod ticks.
	RefreshEnabled bool
	refreshCounter int
	RefreshPending bool
	// refreshStall is the number of extra wait states owed to the next
	// memory/fetch bus cycle because a refresh slipped in since the last
	// one. WaitStatesAt drains it, so the steal shows up as a real Tw on
	// whatever instruction happens to touch the bus next.
	refreshStall int

	patches     []*Patch
	checkpoints map[uint32]Checkpoint

	// INTAHandler is wired to the PIC's INTA acknowledge (spec §4.1
	// "INTA is a two-cycle bus transaction addressed at the PIC").
	INTAHandler func() byte

	log *logging.Logger
}

func New() *Bus {
	return &Bus{
		Mem:         memmap.New(),
		checkpoints: make(map[uint32]Checkpoint),
		log:         logging.New("bus"),
	}
}

// MapIOPort registers handler for the inclusive port range [start,end],
// the I/O-space analogue of the teacher's MapIO for memory.
func (b *Bus) MapIOPort(start, end uint16, handler IOPort) {
	b.ioPorts = append(b.ioPorts, ioRegistration{start: start, end: end, handler: handler})
}

func (b *Bus) findIOPort(port uint16) IOPort {
	for i := len(b.ioPorts) - 1; i >= 0; i-- {
		r := b.ioPorts[i]
		if port >= r.start && port <= r.end {
			return r.handler
		}
	}
	return nil
}

// InIO reads from an I/O port; unmapped ports return 0xFF (spec §7).
func (b *Bus) InIO(port uint16) byte {
	if h := b.findIOPort(port); h != nil {
		return h.ReadIO(port)
	}
	return 0xFF
}

// OutIO writes to an I/O port; unmapped ports are silently discarded.
func (b *Bus) OutIO(port uint16, value byte) {
	if h := b.findIOPort(port); h != nil {
		h.WriteIO(port, value)
	}
}

// ReadMem performs an instrumented memory read: patches/checkpoints are
// evaluated only for code fetches (the caller passes isFetch) per
// spec §4.2 "On every executed fetch, the per-byte memory flags are
// inspected."
func (b *Bus) ReadMem(addr uint32, isFetch bool) byte {
	if isFetch {
		b.Mem.SetFlags(addr, memmap.FlagExecuted)
		b.checkFetchHooks(addr)
	}
	return b.Mem.Read8(addr)
}

func (b *Bus) WriteMem(addr uint32, value byte) {
	b.Mem.Write8(addr, value)
}

func (b *Bus) checkFetchHooks(addr uint32) {
	if b.Mem.HasFlag(addr, memmap.FlagCheckpoint) {
		if cp, ok := b.checkpoints[addr]; ok {
			b.log.Debugf("checkpoint hit at %05X: %s", addr, cp.Description)
		}
	}
	if b.Mem.HasFlag(addr, memmap.FlagPatchTrigger) {
		for _, p := range b.patches {
			if p.TriggerAddr == addr && !p.applied {
				b.applyPatch(p)
			}
		}
	}
}

func (b *Bus) applyPatch(p *Patch) {
	p.original = b.Mem.ReadBytes(p.TargetAddr, len(p.Bytes))
	for i, v := range p.Bytes {
		b.Mem.ForceWrite8(p.TargetAddr+uint32(i), v)
	}
	p.applied = true
}

// RevertPatch restores the bytes a reversible patch overwrote (spec §4.2
// "Optional reverse-trigger restores the original bytes").
func (b *Bus) RevertPatch(p *Patch) {
	if !p.applied || !p.Reversible {
		return
	}
	for i, v := range p.original {
		b.Mem.ForceWrite8(p.TargetAddr+uint32(i), v)
	}
	p.applied = false
}

// AddPatch installs a patch and flags its trigger byte.
func (b *Bus) AddPatch(p *Patch) {
	b.patches = append(b.patches, p)
	b.Mem.SetFlags(p.TriggerAddr, memmap.FlagPatchTrigger)
}

// AddCheckpoint installs a checkpoint and flags its address.
func (b *Bus) AddCheckpoint(cp Checkpoint) {
	b.checkpoints[cp.Addr] = cp
	b.Mem.SetFlags(cp.Addr, memmap.FlagCheckpoint)
}

// TickRefresh advances the DRAM refresh counter by n ticks. It returns
// true the tick a refresh cycle steals the bus (spec §4.2, §8 scenario 5),
// and banks one wait state in refreshStall so the steal actually costs the
// CPU time the next time it touches the bus - disabling RefreshEnabled
// skips this entirely, which is what makes the ~7% speed difference in
// spec §4.2 observable rather than cosmetic.
func (b *Bus) TickRefresh(n int) bool {
	if !b.RefreshEnabled {
		return false
	}
	b.refreshCounter += n
	if b.refreshCounter >= RefreshPeriod {
		b.refreshCounter -= RefreshPeriod
		b.RefreshPending = true
	}
	if b.RefreshPending {
		b.RefreshPending = false
		b.refreshStall++
		return true
	}
	return false
}

// INTAAck implements cpu.BIUBus: it is driven during the second INTA
// bus cycle and returns the vector the PIC has prioritized.
func (b *Bus) INTAAck() byte {
	if b.INTAHandler != nil {
		return b.INTAHandler()
	}
	return 0
}

// WaitStatesAt reports the configured wait states at addr, used by the
// BIU T-cycle state machine to insert Tw cycles (spec §4.1), plus any
// refresh steal banked by TickRefresh since the last bus cycle.
func (b *Bus) WaitStatesAt(addr uint32) int {
	ws := b.Mem.WaitStatesAt(addr)
	if b.refreshStall > 0 {
		ws += b.refreshStall
		b.refreshStall = 0
	}
	return ws
}

// Reset clears the DRAM refresh state; installed ranges, patches (including
// whether each has been applied) and checkpoints survive a soft reset (only
// explicit reconfiguration rebuilds the machine graph, spec §3.5).
func (b *Bus) Reset() {
	b.refreshCounter = 0
	b.RefreshPending = false
	b.refreshStall = 0
}
