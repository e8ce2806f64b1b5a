// Package config loads the machine-graph configuration (spec §6.1) from
// TOML using BurntSushi/toml, the table-driven decode library the
// retrieval pack's config-heavy repos reach for rather than hand-rolling
// a parser. Overlays are named fragments merged over a base machine
// config in declaration order, matching the teacher's layered-config
// habit of a base file plus optional named overrides.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// OnHalt controls CPU-error handling (spec §7).
type OnHalt string

const (
	OnHaltContinue OnHalt = "Continue"
	OnHaltWarn     OnHalt = "Warn"
	OnHaltStop     OnHalt = "Stop"
)

// TraceMode selects the instrumentation formatter (spec §6.1, §4.7).
type TraceMode string

const (
	TraceInstruction TraceMode = "Instruction"
	TraceCycleText   TraceMode = "CycleText"
	TraceCycleCsv    TraceMode = "CycleCsv"
	TraceCycleSigrok TraceMode = "CycleSigrok"
)

// ClockMode mirrors internal/video/cga.ClockMode's config-facing names
// (spec §6.1 "[[machine.video]] clock_mode").
type ClockMode string

const (
	ClockDefault   ClockMode = "Default"
	ClockCycle     ClockMode = "Cycle"
	ClockCharacter ClockMode = "Character"
	ClockScanline  ClockMode = "Scanline"
	ClockDynamic   ClockMode = "Dynamic"
)

// Machine is the root config record (spec §6.1's `[machine]` table).
type Machine struct {
	Model    string   `toml:"model"`
	RomSet   string   `toml:"rom_set"`
	Speaker  bool     `toml:"speaker"`
	Overlays []string `toml:"overlays"`

	Memory MemoryConfig `toml:"memory"`
	CPU    CPUConfig    `toml:"cpu"`
	Video  []VideoConfig `toml:"video"`
	FDC    []PeripheralConfig `toml:"fdc"`
	HDC    []PeripheralConfig `toml:"hdc"`
	Serial []PeripheralConfig `toml:"serial"`
}

type MemoryConfig struct {
	ConventionalSize int `toml:"conventional_size"`
	WaitStates       int `toml:"wait_states"`
}

type CPUConfig struct {
	WaitStates           int       `toml:"wait_states"`
	DRAMRefreshSimulation bool     `toml:"dram_refresh_simulation"`
	OffRailsDetection    bool      `toml:"off_rails_detection"`
	OnHalt               OnHalt    `toml:"on_halt"`
	ServiceInterrupt     bool      `toml:"service_interrupt"`
	TraceMode            TraceMode `toml:"trace_mode"`
}

type VideoConfig struct {
	BusType   string    `toml:"bus_type"`
	Type      string    `toml:"type"` // MDA, CGA, EGA, VGA, TGA, Hercules
	ClockMode ClockMode `toml:"clock_mode"`
	// Composite selects NTSC composite-monitor artifact-color output on
	// adapters that support it (currently CGA's 640x200x1 mode, spec
	// §4.5); ignored by adapter types that have no composite path.
	Composite bool `toml:"composite"`
}

// PeripheralConfig is the generic shape `[[machine.fdc/hdc/serial/...]]`
// tables share; FDC/HDC/serial internals are out of scope (spec §1), so
// this only records enough to surface "peripheral configured but not
// modeled" in logs rather than silently dropping the table.
type PeripheralConfig struct {
	Name string `toml:"name"`
}

// Root is the top-level document: one `[machine]` table plus whatever
// overlay fragments named in Machine.Overlays get merged over it.
type Root struct {
	Machine Machine `toml:"machine"`
}

// Load decodes a base config file and applies the overlay fragments it
// names, looked up by name in overlays (name -> TOML text), in
// declaration order (spec §6.1 "Overlays are named fragments applied in
// order over a base machine config").
func Load(path string, overlays map[string]string) (*Root, error) {
	var root Root
	if _, err := toml.DecodeFile(path, &root); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	for _, name := range root.Machine.Overlays {
		frag, ok := overlays[name]
		if !ok {
			return nil, fmt.Errorf("config: overlay %q referenced but not supplied", name)
		}
		var overlay Root
		if _, err := toml.Decode(frag, &overlay); err != nil {
			return nil, fmt.Errorf("config: decoding overlay %q: %w", name, err)
		}
		mergeMachine(&root.Machine, overlay.Machine)
	}
	if err := root.validate(); err != nil {
		return nil, err
	}
	return &root, nil
}

// mergeMachine overlays non-zero fields of b onto a, field by field,
// matching the teacher's shallow-merge overlay semantics rather than a
// generic reflection-based deep merge. Only model, rom_set, the memory
// table, cpu.on_halt, cpu.trace_mode and the video list are merged; the
// remaining fields (speaker, the other cpu settings, fdc/hdc/serial) keep
// the base config's values.
func mergeMachine(a *Machine, b Machine) {
	if b.Model != "" {
		a.Model = b.Model
	}
	if b.RomSet != "" {
		a.RomSet = b.RomSet
	}
	if b.Memory.ConventionalSize != 0 {
		a.Memory.ConventionalSize = b.Memory.ConventionalSize
	}
	if b.Memory.WaitStates != 0 {
		a.Memory.WaitStates = b.Memory.WaitStates
	}
	if b.CPU.OnHalt != "" {
		a.CPU.OnHalt = b.CPU.OnHalt
	}
	if b.CPU.TraceMode != "" {
		a.CPU.TraceMode = b.CPU.TraceMode
	}
	if len(b.Video) > 0 {
		a.Video = b.Video
	}
}

// validate reports configuration errors with enough context to satisfy
// spec §7's "reported with a precise file+line" intent; BurntSushi/toml
// surfaces line numbers on decode errors already, so this pass only
// catches semantic mistakes decode can't: an unknown machine model or an
// unknown video adapter type. Conflicts between overlays are not
// detected; a later overlay silently replaces an earlier one's values.
func (r *Root) validate() error {
	switch r.Machine.Model {
	case "ibm5150", "ibm5160", "pcjr", "tandy1000", "":
	default:
		return fmt.Errorf("config: unknown machine model %q", r.Machine.Model)
	}
	for _, v := range r.Machine.Video {
		switch v.Type {
		case "MDA", "CGA", "EGA", "VGA", "TGA", "Hercules":
		default:
			return fmt.Errorf("config: unknown video adapter type %q", v.Type)
		}
	}
	return nil
}
