package mda

import "testing"

func TestPlotGlyphDrawsCharacterPixels(t *testing.T) {
	m := New()
	// 'A' (0x41) has a non-blank glyph; a space (0x20) is blank.
	m.plotGlyph(0, 0, 0x41, attrIntensity)

	lit := false
	for i := 0; i < len(m.frame); i += 4 {
		if m.frame[i] != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatalf("plotGlyph('A') produced an all-dark cell")
	}
}

func TestPlotGlyphUnderlinePaintsNextToLastRow(t *testing.T) {
	m := New()
	m.plotGlyph(0, 0, 0x20, attrUnderline) // space, so only the underline row should light

	row := charHeight - 2
	base := (row*textCols*charWidth + 0) * 4
	if m.frame[base] == 0 {
		t.Fatalf("underline attribute did not paint row %d", row)
	}
}
