package render

import "sort"

var glyphRamps = map[string][]rune{
	"default": []rune(" .,:-=+*%#@"),
	"box":     []rune(" ░▒▓█"),
	"dots":    []rune(" ⠁⠃⠇⡇⡏⡟⡿⣿"),
	"lines":   []rune(" `.-=+*/|#"),
}

// Glyphs returns the character ramp used for brightness mapping, dimmest first.
func Glyphs(name string) []rune {
	if ramp, ok := glyphRamps[name]; ok {
		return ramp
	}
	return glyphRamps["default"]
}

// GlyphNames returns all ramp identifiers.
func GlyphNames() []string {
	names := make([]string, 0, len(glyphRamps))
	for name := range glyphRamps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// glyphFor maps a value in [0,1] onto a ramp.
func glyphFor(ramp []rune, v float64) rune {
	if len(ramp) == 0 {
		return ' '
	}
	i := int(clamp01(v)*float64(len(ramp)-1) + 0.5)
	return ramp[clampInt(i, 0, len(ramp)-1)]
}
