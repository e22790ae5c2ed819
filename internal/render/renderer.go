package render

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/compose"
	"github.com/guidoenr/ripplefield/internal/ripple"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
)

type backend int

const (
	backendTerminal backend = iota
	backendSDL
)

// Config controls how frames are produced.
type Config struct {
	Width  int
	Height int
	// Glyphs names the character ramp for the terminal backend.
	Glyphs string
	// UseANSI enables 256-color escapes; TrueColor upgrades them to 24-bit.
	UseANSI   bool
	TrueColor bool
	// Window selects the SDL backend.
	Window bool
	Log    logrus.FieldLogger
}

// Renderer turns compositor state into terminal lines or window pixels.
type Renderer struct {
	width         int
	height        int
	glyphs        []rune
	glyphName     string
	useANSI       bool
	trueColor     bool
	mode          backend
	log           logrus.FieldLogger
	xCoords       []float64
	yCoords       []float64
	statusBuilder strings.Builder
	sdl           *sdlState
}

// Frame contains the rendered lines and status text. Present is set by the
// windowed backend and must be called to display the frame.
type Frame struct {
	Lines   []string
	Status  string
	Present func(status string) error
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("width=%d height=%d: %w", cfg.Width, cfg.Height, ErrInvalidDimensions)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	r := &Renderer{
		width:     cfg.Width,
		height:    cfg.Height,
		useANSI:   cfg.UseANSI,
		trueColor: cfg.TrueColor,
		log:       cfg.Log,
	}
	r.SetGlyphs(cfg.Glyphs)
	if cfg.Window {
		if err := r.initSDL(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetGlyphs switches the character ramp.
func (r *Renderer) SetGlyphs(name string) {
	if name == "" {
		name = "default"
	}
	r.glyphName = name
	r.glyphs = Glyphs(name)
}

// GlyphName returns the active ramp identifier.
func (r *Renderer) GlyphName() string { return r.glyphName }

// Windowed reports whether frames go to an SDL window.
func (r *Renderer) Windowed() bool { return r.mode == backendSDL }

// Size returns the render dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Resize updates render dimensions.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 || (width == r.width && height == r.height) {
		return
	}
	r.width = width
	r.height = height
	r.resizeSDL()
}

// Close releases backend resources.
func (r *Renderer) Close() error {
	return r.closeSDL()
}

// Render composites a frame from st.
func (r *Renderer) Render(st *compose.State, fps float64) Frame {
	if r.width <= 0 || r.height <= 0 || st == nil {
		return Frame{}
	}
	r.ensureCoordinateCache(r.width, r.height)
	if r.mode == backendSDL {
		return r.renderSDL(st, fps)
	}

	lines := make([]string, r.height)
	width := r.width
	useANSI := r.useANSI
	forEachRow(r.height, func(y int) {
		var builder strings.Builder
		builder.Grow(width * 8)
		lastCode := ""
		for x := 0; x < width; x++ {
			out := compose.Evaluate(r.sample(x, y), st.Time, st)
			if useANSI {
				code := r.colorEscape(out.Color)
				if code != lastCode {
					builder.WriteString(code)
					lastCode = code
				}
			}
			builder.WriteRune(glyphFor(r.glyphs, out.Value))
		}
		if useANSI {
			builder.WriteString(resetANSI)
		}
		lines[y] = builder.String()
	})

	return Frame{
		Lines:  lines,
		Status: r.buildStatus(st, fps),
	}
}

func (r *Renderer) sample(x, y int) compose.Sample {
	return compose.Sample{
		Pos:    ripple.Point{X: r.xCoords[x], Y: r.yCoords[y]},
		PixelX: x,
		PixelY: y,
	}
}

// forEachRow runs fn for every row, spreading rows over GOMAXPROCS workers.
func forEachRow(height int, fn func(y int)) {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowJobs {
				fn(y)
			}
		}()
	}
	for y := 0; y < height; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()
}

func (r *Renderer) colorEscape(c colorful.Color) string {
	if r.trueColor {
		cr, cg, cb := c.RGB255()
		return "\x1b[38;2;" + strconv.Itoa(int(cr)) + ";" + strconv.Itoa(int(cg)) + ";" + strconv.Itoa(int(cb)) + "m"
	}
	return colorCode(rgbToANSI(c.R, c.G, c.B))
}

func colorCode(index int) string {
	return precomputedANSI[clampInt(index, 0, len(precomputedANSI)-1)]
}

// rgbToANSI maps an sRGB color onto the xterm 256-color cube or gray ramp.
func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))
	return 16 + 36*ri + 6*gi + bi
}

// ensureCoordinateCache maps columns onto [-1,1] and rows onto [0,1], sampling
// cell centers.
func (r *Renderer) ensureCoordinateCache(width, height int) {
	if len(r.xCoords) != width {
		r.xCoords = fieldCoords(width, -1, 1)
	}
	if len(r.yCoords) != height {
		r.yCoords = fieldCoords(height, 0, 1)
	}
}

func fieldCoords(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n)
	for i := range out {
		out[i] = lo + (float64(i)+0.5)*step
	}
	return out
}

func (r *Renderer) buildStatus(st *compose.State, fps float64) string {
	feat := st.Features
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(128)
	builder.WriteString("bpm ")
	appendFloat(builder, feat.BPM, 1)
	for t := analyzer.Bass; t < analyzer.NumTiers; t++ {
		builder.WriteString(" | ")
		builder.WriteString(t.String())
		builder.WriteByte(' ')
		appendFloat(builder, feat.Smoothed[t], 2)
		if feat.Beats[t].Onset {
			builder.WriteByte('!')
		}
	}
	builder.WriteString(" | ripples ")
	builder.WriteString(strconv.Itoa(st.Ripples.Active()))
	builder.WriteString(" debt ")
	appendFloat(builder, st.Params.TimeDebt, 2)
	builder.WriteString(" | fps ")
	appendFloat(builder, fps, 1)
	return builder.String()
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
