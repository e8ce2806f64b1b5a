package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadAppliesNamedOverlayInOrder(t *testing.T) {
	base := writeTemp(t, "base.toml", `
[machine]
model = "ibm5150"
rom_set = "ibm5150-8088"
overlays = ["turbo"]

[machine.cpu]
on_halt = "Continue"

[[machine.video]]
type = "CGA"
`)
	overlays := map[string]string{
		"turbo": `
[machine.cpu]
on_halt = "Stop"
`,
	}

	root, err := Load(base, overlays)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if root.Machine.CPU.OnHalt != OnHaltStop {
		t.Fatalf("CPU.OnHalt after overlay = %q, want Stop", root.Machine.CPU.OnHalt)
	}
	if root.Machine.Model != "ibm5150" {
		t.Fatalf("Model = %q, want ibm5150 (untouched by overlay)", root.Machine.Model)
	}
}

func TestLoadRejectsUnknownVideoType(t *testing.T) {
	base := writeTemp(t, "bad.toml", `
[machine]
model = "ibm5150"

[[machine.video]]
type = "Matrox"
`)
	if _, err := Load(base, nil); err == nil {
		t.Fatalf("Load did not reject an unknown video adapter type")
	}
}

func TestLoadRejectsMissingOverlay(t *testing.T) {
	base := writeTemp(t, "missing.toml", `
[machine]
model = "ibm5150"
overlays = ["nope"]
`)
	if _, err := Load(base, nil); err == nil {
		t.Fatalf("Load did not reject a referenced-but-unsupplied overlay")
	}
}
