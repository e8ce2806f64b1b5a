package cga

import "testing"

func TestSnowFlagSetOnVRAMAccessDuringActiveDisplay(t *testing.T) {
	c := New()
	c.modeControl = ModeVideoEnable
	c.CRTC.DisplayEnable = true

	c.MMIOWrite(vramBase, 0xFF)
	if !c.Snow {
		t.Fatalf("Snow not set after a VRAM write during active display")
	}

	c.Tick(1) // Tick clears Snow at the start of each tick batch
	if c.Snow {
		t.Fatalf("Snow still set after Tick() cleared it with no new access")
	}
}

func TestSnowNotSetWhenDisplayDisabled(t *testing.T) {
	c := New()
	c.modeControl = ModeVideoEnable
	c.CRTC.DisplayEnable = false

	c.MMIOWrite(vramBase, 0xFF)
	if c.Snow {
		t.Fatalf("Snow set despite DisplayEnable being false")
	}
}

func TestRenderComposite640x200DiffersFromRGBI(t *testing.T) {
	c := New()
	c.modeControl = ModeGraphics | Mode640
	for i := range c.vram {
		c.vram[i] = 0xAA
	}

	c.Composite = false
	c.render640x200x1()
	rgbi := append([]byte(nil), c.frame...)

	c.Composite = true
	c.render640x200x1()
	composite := c.frame

	same := true
	for i := range rgbi {
		if rgbi[i] != composite[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("composite render produced byte-identical output to the RGBI render")
	}
}

func TestActivePaletteChangesWithPaletteSelect(t *testing.T) {
	c := New()
	c.colorSelect = ColorIntense // palette select clear -> light green/light red/yellow set

	low := c.activePalette()
	c.colorSelect = ColorIntense | ColorPaletteSelect
	high := c.activePalette()

	if low == high {
		t.Fatalf("activePalette() did not change between palette-select states")
	}
}
