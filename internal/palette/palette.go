package palette

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultSteps matches the number of analysis bands driving the quantizer.
const DefaultSteps = 10

// Anchor describes one extreme of a palette in OKLCH. Hue, when set, is an
// absolute angle in degrees; otherwise the anchor sits at base hue + HueOffset.
type Anchor struct {
	Lightness float64  `json:"lightness"`
	Chroma    float64  `json:"chroma"`
	Hue       *float64 `json:"hue,omitempty"`
	HueOffset float64  `json:"hueOffset"`
}

// ResolveHue returns the anchor hue for the given base hue.
func (a Anchor) ResolveHue(base float64) float64 {
	if a.Hue != nil {
		return normalizeHue(*a.Hue)
	}
	return normalizeHue(base + a.HueOffset)
}

func (a Anchor) equal(b Anchor) bool {
	if a.Lightness != b.Lightness || a.Chroma != b.Chroma || a.HueOffset != b.HueOffset {
		return false
	}
	if (a.Hue == nil) != (b.Hue == nil) {
		return false
	}
	return a.Hue == nil || *a.Hue == *b.Hue
}

// Config is the immutable input of palette generation.
type Config struct {
	BaseHue   float64 `json:"baseHue"`
	Dark      Anchor  `json:"dark"`
	Bright    Anchor  `json:"bright"`
	Lightness Curve   `json:"lightnessCurve"`
	Chroma    Curve   `json:"chromaCurve"`
	Hue       Curve   `json:"hueCurve"`
}

// DefaultConfig returns a deep indigo to pale gold gradient.
func DefaultConfig() Config {
	return Config{
		BaseHue:   285,
		Dark:      Anchor{Lightness: 0.14, Chroma: 0.06, HueOffset: -15},
		Bright:    Anchor{Lightness: 0.94, Chroma: 0.11, HueOffset: 140},
		Lightness: Curve{X1: 0.42, Y1: 0, X2: 0.58, Y2: 1},
		Chroma:    Curve{X1: 0.2, Y1: 0.6, X2: 0.4, Y2: 1},
		Hue:       Linear,
	}
}

// Equal reports whether two configs generate the same palette.
func (c Config) Equal(o Config) bool {
	return c.BaseHue == o.BaseHue &&
		c.Dark.equal(o.Dark) && c.Bright.equal(o.Bright) &&
		c.Lightness == o.Lightness && c.Chroma == o.Chroma && c.Hue == o.Hue
}

// Shifted returns a copy with every anchor hue rotated by deg degrees.
func (c Config) Shifted(deg float64) Config {
	c.BaseHue = normalizeHue(c.BaseHue + deg)
	c.Dark = c.Dark.shifted(deg)
	c.Bright = c.Bright.shifted(deg)
	return c
}

func (a Anchor) shifted(deg float64) Anchor {
	if a.Hue != nil {
		h := normalizeHue(*a.Hue + deg)
		a.Hue = &h
	}
	return a
}

// Palette is an ordered list of colors, darkest first.
type Palette []colorful.Color

// Hex returns the palette as #rrggbb strings.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// Generate builds a steps-long gradient from the dark to the bright anchor.
// Lightness, chroma and hue are each eased by their own curve; hue follows
// the shortest angular path. Colors are converted to sRGB and clamped.
func Generate(cfg Config, steps int) Palette {
	if steps <= 0 {
		return nil
	}
	darkHue := cfg.Dark.ResolveHue(cfg.BaseHue)
	brightHue := cfg.Bright.ResolveHue(cfg.BaseHue)

	out := make(Palette, steps)
	for i := 0; i < steps; i++ {
		t := 0.0
		if steps > 1 {
			t = float64(i) / float64(steps-1)
		}
		l := lerp(cfg.Dark.Lightness, cfg.Bright.Lightness, cfg.Lightness.Eval(t))
		c := lerp(cfg.Dark.Chroma, cfg.Bright.Chroma, cfg.Chroma.Eval(t))
		h := lerpHue(darkHue, brightHue, cfg.Hue.Eval(t))
		out[i] = colorful.OkLch(clampUnit(l), math.Max(0, c), h).Clamped()
	}
	return out
}

// Generator caches a generated palette until its config changes.
type Generator struct {
	steps       int
	cfg         Config
	cached      Palette
	valid       bool
	generations int
}

// NewGenerator creates a Generator producing steps colors.
func NewGenerator(steps int) *Generator {
	if steps <= 0 {
		steps = DefaultSteps
	}
	return &Generator{steps: steps}
}

// Palette returns the palette for cfg, regenerating only when cfg differs
// from the one last used. The returned slice must not be modified.
func (g *Generator) Palette(cfg Config) Palette {
	if g.valid && g.cfg.Equal(cfg) {
		return g.cached
	}
	g.cfg = cfg
	g.cached = Generate(cfg, g.steps)
	g.valid = true
	g.generations++
	return g.cached
}

// Steps returns the palette length.
func (g *Generator) Steps() int { return g.steps }

// Generations counts how many times the palette was rebuilt.
func (g *Generator) Generations() int { return g.generations }

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func lerpHue(from, to, t float64) float64 {
	delta := math.Mod(to-from+540, 360) - 180
	return normalizeHue(from + delta*t)
}

func normalizeHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HueDistance returns the absolute shortest angular distance between two hues.
func HueDistance(a, b float64) float64 {
	return math.Abs(math.Mod(b-a+540, 360) - 180)
}
