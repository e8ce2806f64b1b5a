// Package debugger implements the interactive REPL (spec §4.7/§6.3
// "state_snapshot() for debugger displays"): a raw-mode terminal reader
// driving step/continue/breakpoint/memory commands against a
// machine.Machine. Grounded on golang.org/x/term's raw-mode API, the
// terminal-handling library the retrieval pack's CLI-heavy repos reach
// for rather than hand-rolling termios control.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/martypc-go/martypc/internal/machine"
	"github.com/martypc-go/martypc/internal/trace"
)

// Debugger owns the REPL loop over an attached machine.
type Debugger struct {
	Machine *machine.Machine
	in      *bufio.Reader
	out     io.Writer
}

func New(m *machine.Machine, in io.Reader, out io.Writer) *Debugger {
	return &Debugger{Machine: m, in: bufio.NewReader(in), out: out}
}

// RunInteractive puts fd into raw mode for the duration of the REPL if it
// is a terminal, restoring cooked mode on exit (spec's AH=1 service
// interrupt "attach debugger" entry point lands here).
func RunInteractive(m *machine.Machine, fd int, in io.Reader, out io.Writer) error {
	d := New(m, in, out)
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("debugger: entering raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}
	return d.loop()
}

func (d *Debugger) loop() error {
	for {
		fmt.Fprint(d.out, "martypc> ")
		line, err := d.in.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if d.dispatch(strings.TrimSpace(line)) {
			return nil
		}
	}
}

// dispatch runs one command line, returning true if the REPL should exit.
func (d *Debugger) dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "q":
		return true
	case "step", "s":
		n := 1
		if len(fields) > 1 {
			n, _ = strconv.Atoi(fields[1])
		}
		for i := 0; i < n; i++ {
			res := d.Machine.StepInstruction()
			fmt.Fprintf(d.out, "%06X  %-24s cy=%d\n", res.CSIP, res.Disasm, res.Cycles)
		}
	case "continue", "c":
		if bp := d.Machine.RunUntil(nil); bp != nil {
			fmt.Fprintf(d.out, "breakpoint hit at %06X\n", bp.Addr)
		}
	case "break", "b":
		if len(fields) < 2 {
			fmt.Fprintln(d.out, "usage: break <hex addr>")
			break
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			fmt.Fprintf(d.out, "bad address: %v\n", err)
			break
		}
		d.Machine.SetBreakpoint(trace.BreakExecute, uint32(addr))
		fmt.Fprintf(d.out, "breakpoint set at %06X\n", addr)
	case "regs", "r":
		s := d.Machine.StateSnapshot()
		fmt.Fprintf(d.out, "AX=%04X BX=%04X CX=%04X DX=%04X SP=%04X BP=%04X SI=%04X DI=%04X\n",
			s.AX, s.BX, s.CX, s.DX, s.SP, s.BP, s.SI, s.DI)
		fmt.Fprintf(d.out, "CS=%04X DS=%04X ES=%04X SS=%04X IP=%04X FLAGS=%04X cycles=%d halted=%t\n",
			s.CS, s.DS, s.ES, s.SS, s.IP, s.Flags, s.Cycles, s.Halted)
	case "mem", "m":
		if len(fields) < 3 {
			fmt.Fprintln(d.out, "usage: mem <hex addr> <count>")
			break
		}
		addr, _ := strconv.ParseUint(fields[1], 16, 32)
		n, _ := strconv.Atoi(fields[2])
		buf := d.Machine.ReadMemory(uint32(addr), n)
		fmt.Fprintf(d.out, "% X\n", buf)
	default:
		fmt.Fprintf(d.out, "unknown command %q\n", fields[0])
	}
	return false
}
