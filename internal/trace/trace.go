// Package trace implements the instrumentation component (spec §4.7 C7):
// an instruction history ring, pluggable cycle/instruction trace
// formatters, breakpoints, checkpoints, and a stopwatch between two
// breakpoints. It is a passive observer of cpu.StepResult values, never
// mutating CPU state, mirroring the teacher's separation between the
// execution loop and its debug_cmd.go command-history logging.
package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/martypc-go/martypc/internal/cpu"
)

// HistoryEntry is one ring-buffer slot: a completed step plus the cycle
// count at which it started, for stopwatch and backtrace queries.
type HistoryEntry struct {
	Step       cpu.StepResult
	StartCycle uint64
}

// History is a fixed-capacity ring buffer of recent steps (spec's
// "instruction history ring").
type History struct {
	buf   []HistoryEntry
	head  int
	count int
}

func NewHistory(capacity int) *History {
	return &History{buf: make([]HistoryEntry, capacity)}
}

func (h *History) Record(e HistoryEntry) {
	h.buf[h.head] = e
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Recent returns up to n most-recent entries, oldest first.
func (h *History) Recent(n int) []HistoryEntry {
	if n > h.count {
		n = h.count
	}
	out := make([]HistoryEntry, n)
	for i := 0; i < n; i++ {
		idx := (h.head - n + i + len(h.buf)) % len(h.buf)
		out[i] = h.buf[idx]
	}
	return out
}

// BreakpointKind distinguishes execution, memory-read, memory-write and
// cycle-count breakpoints. Controller.Observe checks only BreakExecute,
// by comparing the step's CS:IP address; nothing in this package checks
// the other kinds or sets memory flags for any of them.
type BreakpointKind int

const (
	BreakExecute BreakpointKind = iota
	BreakMemRead
	BreakMemWrite
	BreakCycle
)

type Breakpoint struct {
	Kind BreakpointKind
	Addr uint32
	Hits int
}

// Checkpoint is a named marker address with an associated severity level,
// logged (not halted on) whenever execution reaches it (spec §6.2
// "checkpoints... applied to memory at load").
type Checkpoint struct {
	Addr        uint32
	Level       int
	Description string
}

// Controller owns the breakpoint/checkpoint tables and the stopwatch
// state; the machine graph polls it once per StepOnce.
type Controller struct {
	History     *History
	breakpoints []Breakpoint
	checkpoints []Checkpoint
	fmt         Formatter
	out         io.Writer

	stopwatchArmed   bool
	stopwatchFrom    uint32
	stopwatchStart   uint64
	stopwatchElapsed uint64
	stopwatchRunning bool
}

func NewController(historyCap int, f Formatter, out io.Writer) *Controller {
	return &Controller{History: NewHistory(historyCap), fmt: f, out: out}
}

func (c *Controller) AddBreakpoint(bp Breakpoint) { c.breakpoints = append(c.breakpoints, bp) }
func (c *Controller) AddCheckpoint(cp Checkpoint)  { c.checkpoints = append(c.checkpoints, cp) }

// ArmStopwatch starts timing cycles from the next time execution reaches
// `from`. It takes no end address: StopwatchMark reports the cycles
// elapsed from that point to the cycle count it is given.
func (c *Controller) ArmStopwatch(from uint32) {
	c.stopwatchArmed = true
	c.stopwatchFrom = from
	c.stopwatchRunning = false
}

// Observe is called once per completed step; it updates history, checks
// breakpoints/checkpoints/stopwatch, and emits a trace line if a
// Formatter is attached.
func (c *Controller) Observe(res cpu.StepResult, cycleCounter uint64) (hit *Breakpoint) {
	c.History.Record(HistoryEntry{Step: res, StartCycle: cycleCounter})

	if c.fmt != nil && c.out != nil {
		io.WriteString(c.out, c.fmt.Format(res, cycleCounter))
	}

	addr := res.CSIP
	for i := range c.breakpoints {
		bp := &c.breakpoints[i]
		if bp.Kind == BreakExecute && bp.Addr == addr {
			bp.Hits++
			hit = bp
		}
	}
	for _, cp := range c.checkpoints {
		if cp.Addr == addr {
			fmt.Fprintf(c.out, "checkpoint %s hit at %06X (level %d)\n", cp.Description, addr, cp.Level)
		}
	}

	if c.stopwatchArmed {
		if !c.stopwatchRunning && addr == c.stopwatchFrom {
			c.stopwatchRunning = true
			c.stopwatchStart = cycleCounter
		}
	}
	return hit
}

// StopwatchMark reports the cycle span between the step at which
// execution reached the armed `from` address and now, for a debugger's
// "stopwatch" command; while the stopwatch is not running it returns the
// last span it reported.
func (c *Controller) StopwatchMark(now uint64) uint64 {
	if c.stopwatchRunning {
		c.stopwatchElapsed = now - c.stopwatchStart
	}
	return c.stopwatchElapsed
}

// Formatter renders one completed step as a trace line; the three
// formats spec §6.1's trace_mode config enumerates (CycleText, CycleCsv,
// CycleSigrok) each get one implementation, plus InstructionFormatter
// for the coarser Instruction mode.
type Formatter interface {
	Format(res cpu.StepResult, cycle uint64) string
}

// InstructionFormatter prints one line per retired instruction.
type InstructionFormatter struct{}

func (InstructionFormatter) Format(res cpu.StepResult, cycle uint64) string {
	return fmt.Sprintf("%08d %06X %-24s (%d cy)\n", cycle, res.CSIP, res.Disasm, res.Cycles)
}

// CycleTextFormatter prints one line per step with a human-readable flag
// summary (NMI/trap/HWIRQ), the text counterpart to CycleCsvFormatter.
type CycleTextFormatter struct{}

func (CycleTextFormatter) Format(res cpu.StepResult, cycle uint64) string {
	var flags []string
	if res.NMI {
		flags = append(flags, "NMI")
	}
	if res.Trap {
		flags = append(flags, "TRAP")
	}
	if res.HWIRQ {
		flags = append(flags, "IRQ")
	}
	return fmt.Sprintf("%08d %06X %-24s cy=%-3d %s\n", cycle, res.CSIP, res.Disasm, res.Cycles, strings.Join(flags, ","))
}

// CycleCsvFormatter emits one CSV row per step, suitable for spreadsheet
// analysis of timing-sensitive demo effects (spec §8's 8088 MPH scenario).
type CycleCsvFormatter struct{}

func (CycleCsvFormatter) Format(res cpu.StepResult, cycle uint64) string {
	return fmt.Sprintf("%d,%06X,%s,%d,%t,%t,%t\n", cycle, res.CSIP, res.Disasm, res.Cycles, res.NMI, res.Trap, res.HWIRQ)
}

// CycleSigrokFormatter emits a sigrok-compatible text export: one
// timestamp (in cycle units) plus a label, so an external logic-analyzer
// style viewer can overlay bus activity against a captured signal trace.
type CycleSigrokFormatter struct{}

func (CycleSigrokFormatter) Format(res cpu.StepResult, cycle uint64) string {
	return fmt.Sprintf(";%d %s\n", cycle, res.Disasm)
}
