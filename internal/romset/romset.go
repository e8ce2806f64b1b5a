// Package romset implements ROM-set resolution (spec §6.2): definition
// files enumerate ROM images with a load address, organization, and the
// features they provide/require; at startup the resolver picks, per
// required feature, the highest-priority provider. Grounded on
// internal/config's BurntSushi/toml decode habit, since a ROM-set
// definition is itself just a TOML document in this lineage.
package romset

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/martypc-go/martypc/internal/bus"
	"github.com/martypc-go/martypc/internal/logging"
)

// Organization describes how a ROM image's bytes map onto the chip
// group's address lines (spec §6.2).
type Organization string

const (
	Normal          Organization = "Normal"
	Reversed        Organization = "Reversed"
	InterleavedEven Organization = "InterleavedEven"
	InterleavedOdd  Organization = "InterleavedOdd"
)

// Entry is one ROM image within a set.
type Entry struct {
	MD5      string       `toml:"md5"`
	Filename string       `toml:"filename"`
	Load     uint32       `toml:"load_address"`
	Size     int          `toml:"size"`
	Org      Organization `toml:"organization"`
	ChipGroup string      `toml:"chip_group"`
}

// PatchDef and CheckpointDef mirror bus.Patch/bus.Checkpoint in TOML form
// (spec §6.2 "Patches... and checkpoints... are part of the ROM-set
// definition").
type PatchDef struct {
	TriggerAddr uint32 `toml:"trigger_address"`
	TargetAddr  uint32 `toml:"target_address"`
	Bytes       []byte `toml:"bytes"`
}

type CheckpointDef struct {
	Addr        uint32 `toml:"address"`
	Level       int    `toml:"level"`
	Description string `toml:"description"`
}

// Set is one named ROM-set definition.
type Set struct {
	Name     string          `toml:"name"`
	OEM      string          `toml:"oem"`
	Priority int             `toml:"priority"`
	Provides []string        `toml:"provides"`
	Requires []string        `toml:"requires"`
	Entries  []Entry         `toml:"rom"`
	Patches  []PatchDef      `toml:"patch"`
	Checkpoints []CheckpointDef `toml:"checkpoint"`
}

// ImageLoader resolves a ROM Entry to raw bytes, e.g. by filename lookup
// in a ROM directory or by MD5 in a hash-indexed store.
type ImageLoader func(e Entry) ([]byte, error)

// Resolver holds every discovered ROM set and picks providers for a
// requested feature set.
type Resolver struct {
	sets []Set
	log  *logging.Logger
}

func NewResolver() *Resolver {
	return &Resolver{log: logging.New("romset")}
}

// LoadDefinition decodes one TOML ROM-set definition file and registers it.
func (r *Resolver) LoadDefinition(path string) error {
	var s Set
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return fmt.Errorf("romset: decoding %s: %w", path, err)
	}
	r.sets = append(r.sets, s)
	return nil
}

// Resolve picks, for each requested feature, the highest-priority set
// providing it. On equal priority the earlier-registered set wins; the
// OEM field is not consulted.
func (r *Resolver) Resolve(features []string) (map[string]*Set, error) {
	chosen := make(map[string]*Set)
	for _, feature := range features {
		var best *Set
		for i := range r.sets {
			s := &r.sets[i]
			if !providesFeature(s, feature) {
				continue
			}
			if best == nil || s.Priority > best.Priority {
				best = s
			}
		}
		if best == nil {
			return nil, fmt.Errorf("romset: no ROM set provides required feature %q", feature)
		}
		chosen[feature] = best
	}
	return chosen, nil
}

func providesFeature(s *Set, feature string) bool {
	for _, f := range s.Provides {
		if f == feature {
			return true
		}
	}
	return false
}

// Apply loads every entry in the resolved sets into mem via loader,
// honoring each entry's Organization, then installs patches/checkpoints
// on b (spec §6.2 "applied to memory at load").
func Apply(sets map[string]*Set, loader ImageLoader, b *bus.Bus) error {
	seen := make(map[string]bool)
	for _, s := range sets {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		for _, e := range s.Entries {
			raw, err := loader(e)
			if err != nil {
				return fmt.Errorf("romset: loading %s/%s: %w", s.Name, e.Filename, err)
			}
			if e.MD5 != "" {
				sum := md5.Sum(raw)
				if hex.EncodeToString(sum[:]) != e.MD5 {
					return fmt.Errorf("romset: %s/%s: md5 mismatch", s.Name, e.Filename)
				}
			}
			organized := organize(raw, e.Org)
			for i, v := range organized {
				b.Mem.ForceWrite8(e.Load+uint32(i), v)
			}
		}
		for _, p := range s.Patches {
			b.AddPatch(&bus.Patch{TriggerAddr: p.TriggerAddr, TargetAddr: p.TargetAddr, Bytes: p.Bytes, Reversible: true})
		}
		for _, cp := range s.Checkpoints {
			b.AddCheckpoint(bus.Checkpoint{Addr: cp.Addr, Description: cp.Description})
		}
	}
	return nil
}

// organize reorders a raw ROM image's bytes per its chip organization;
// Reversed/Interleaved layouts reflect how multi-chip ROM sets on real
// PC/XT boards present their combined address space to the bus (spec
// §6.2).
func organize(raw []byte, org Organization) []byte {
	switch org {
	case Reversed:
		out := make([]byte, len(raw))
		for i, v := range raw {
			out[len(raw)-1-i] = v
		}
		return out
	case InterleavedEven, InterleavedOdd:
		out := make([]byte, len(raw))
		half := len(raw) / 2
		start := 0
		if org == InterleavedOdd {
			start = 1
		}
		for i := 0; i < half; i++ {
			out[i*2+start%2] = raw[i]
			out[i*2+(1-start%2)] = raw[half+i]
		}
		return out
	default:
		return raw
	}
}
