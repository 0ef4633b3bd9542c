package tui

import (
	"os"
	"strings"
	"sync"
)

// Some terminals/fonts don't render every Unicode glyph cleanly, so UI affordances
// come from a switchable glyph set.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference reads GETITDONE_TUI_GLYPHS, falling back to the config value.
// Unknown values are ignored.
func applyGlyphPreference(configGlyphs string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("GETITDONE_TUI_GLYPHS")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(configGlyphs))
	}
	switch v {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func glyphCheckbox(done bool) string {
	if glyphs() == glyphSetASCII {
		if done {
			return "[x]"
		}
		return "[ ]"
	}
	if done {
		return "☑"
	}
	return "☐"
}

func glyphCursor() string {
	if glyphs() == glyphSetASCII {
		return ">"
	}
	return "›"
}

func glyphDelete() string {
	if glyphs() == glyphSetASCII {
		return "x"
	}
	return "✕"
}

func glyphBullet() string {
	if glyphs() == glyphSetASCII {
		return "*"
	}
	return "•"
}

func glyphHRule() string {
	if glyphs() == glyphSetASCII {
		return "-"
	}
	return "─"
}
