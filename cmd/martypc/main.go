// Command martypc is the CLI entry point (spec §6): run/step/disasm/trace
// subcommands over a configured machine. Grounded on urfave/cli/v2, the
// flag/subcommand library the retrieval pack's CLI tools build on rather
// than hand-rolling flag parsing.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/martypc-go/martypc/internal/config"
	"github.com/martypc-go/martypc/internal/debugger"
	"github.com/martypc-go/martypc/internal/disasm"
	"github.com/martypc-go/martypc/internal/logging"
	"github.com/martypc-go/martypc/internal/machine"
	"github.com/martypc-go/martypc/internal/romset"
	"github.com/martypc-go/martypc/internal/trace"
)

var log = logging.New("main")

func main() {
	app := &cli.App{
		Name:  "martypc",
		Usage: "cycle-accurate IBM PC/XT-class emulator",
		Commands: []*cli.Command{
			runCommand(),
			stepCommand(),
			disasmCommand(),
			traceCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true, Usage: "path to machine TOML config"}
}

func romsFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{Name: "romset", Usage: "path to a ROM-set TOML definition (repeatable)"}
}

func buildMachine(cctx *cli.Context) (*machine.Machine, error) {
	root, err := config.Load(cctx.String("config"), nil)
	if err != nil {
		return nil, err
	}
	m, err := machine.New(&root.Machine)
	if err != nil {
		return nil, err
	}
	resolver := romset.NewResolver()
	for _, path := range cctx.StringSlice("romset") {
		if err := resolver.LoadDefinition(path); err != nil {
			return nil, err
		}
	}
	m.Reset()
	return m, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "boot the configured machine and drop into the interactive debugger",
		Flags: []cli.Flag{configFlag(), romsFlag()},
		Action: func(cctx *cli.Context) error {
			m, err := buildMachine(cctx)
			if err != nil {
				return err
			}
			return debugger.RunInteractive(m, int(os.Stdin.Fd()), os.Stdin, os.Stdout)
		},
	}
}

func stepCommand() *cli.Command {
	return &cli.Command{
		Name:  "step",
		Usage: "execute a fixed number of instructions non-interactively",
		Flags: []cli.Flag{
			configFlag(), romsFlag(),
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1},
		},
		Action: func(cctx *cli.Context) error {
			m, err := buildMachine(cctx)
			if err != nil {
				return err
			}
			for i := 0; i < cctx.Int("count"); i++ {
				res := m.StepInstruction()
				fmt.Printf("%06X  %-24s cy=%d\n", res.CSIP, res.Disasm, res.Cycles)
			}
			return nil
		},
	}
}

func disasmCommand() *cli.Command {
	return &cli.Command{
		Name:  "disasm",
		Usage: "disassemble instructions starting at CS:IP without executing",
		Flags: []cli.Flag{
			configFlag(), romsFlag(),
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 16},
		},
		Action: func(cctx *cli.Context) error {
			m, err := buildMachine(cctx)
			if err != nil {
				return err
			}
			s := m.StateSnapshot()
			addr := uint32(s.CS)<<4 + uint32(s.IP)
			for i := 0; i < cctx.Int("count"); i++ {
				inst := disasm.Disassemble(m.ReadMemory(addr, 8), addr)
				fmt.Printf("%06X  %s\n", addr, inst.Text)
				addr += uint32(inst.Length)
			}
			return nil
		},
	}
}

func traceCommand() *cli.Command {
	return &cli.Command{
		Name:  "trace",
		Usage: "run the machine emitting a cycle trace in the configured format",
		Flags: []cli.Flag{
			configFlag(), romsFlag(),
			&cli.Uint64Flag{Name: "ticks", Value: 1000},
			&cli.StringFlag{Name: "format", Value: "CycleText", Usage: "Instruction|CycleText|CycleCsv|CycleSigrok"},
		},
		Action: func(cctx *cli.Context) error {
			m, err := buildMachine(cctx)
			if err != nil {
				return err
			}
			var f trace.Formatter
			switch cctx.String("format") {
			case "Instruction":
				f = trace.InstructionFormatter{}
			case "CycleCsv":
				f = trace.CycleCsvFormatter{}
			case "CycleSigrok":
				f = trace.CycleSigrokFormatter{}
			default:
				f = trace.CycleTextFormatter{}
			}
			m.Trace = trace.NewController(4096, f, os.Stdout)
			m.RunFor(cctx.Uint64("ticks"))
			return nil
		},
	}
}
