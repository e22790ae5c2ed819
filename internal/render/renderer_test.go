package render

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/guidoenr/ripplefield/internal/compose"
	"github.com/guidoenr/ripplefield/internal/palette"
	"github.com/guidoenr/ripplefield/internal/params"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func testState() *compose.State {
	st := &compose.State{
		Time:    0.5,
		Palette: palette.Generate(palette.DefaultConfig(), palette.DefaultSteps),
		Params:  params.Defaults(),
	}
	st.Features.SmoothedVolume = 0.6
	return st
}

func TestNewRejectsInvalidDimensions(t *testing.T) {
	if _, err := New(Config{Width: 0, Height: 10}); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestRenderProducesPlainLines(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	r, err := New(Config{Width: 24, Height: 6, Log: logger})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	frame := r.Render(testState(), 30)
	if len(frame.Lines) != 6 {
		t.Fatalf("lines=%d want 6", len(frame.Lines))
	}
	for i, line := range frame.Lines {
		if n := utf8.RuneCountInString(line); n != 24 {
			t.Fatalf("line %d has %d runes", i, n)
		}
	}
	if !strings.Contains(frame.Status, "bpm") || !strings.Contains(frame.Status, "ripples 0") {
		t.Fatalf("unexpected status %q", frame.Status)
	}
	if frame.Present != nil {
		t.Fatalf("terminal frames must not need Present")
	}
}

func TestRenderANSIEndsWithReset(t *testing.T) {
	r, err := New(Config{Width: 8, Height: 2, UseANSI: true, TrueColor: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, line := range r.Render(testState(), 30).Lines {
		if !strings.HasPrefix(line, "\x1b[38;2;") || !strings.HasSuffix(line, resetANSI) {
			t.Fatalf("unexpected escape layout %q", line)
		}
	}
}

func TestRenderIsDeterministicAcrossWorkers(t *testing.T) {
	r, _ := New(Config{Width: 40, Height: 12, UseANSI: true})
	st := testState()
	a := r.Render(st, 30)
	b := r.Render(st, 30)
	for i := range a.Lines {
		if a.Lines[i] != b.Lines[i] {
			t.Fatalf("line %d differs between renders", i)
		}
	}
}

func TestRGBToANSI(t *testing.T) {
	if got := rgbToANSI(0, 0, 0); got != 232 {
		t.Fatalf("black=%d want 232", got)
	}
	if got := rgbToANSI(1, 0, 0); got != 196 {
		t.Fatalf("red=%d want 196", got)
	}
	if got := rgbToANSI(0, 0, 1); got != 21 {
		t.Fatalf("blue=%d want 21", got)
	}
}

func TestGlyphForCoversRamp(t *testing.T) {
	ramp := Glyphs("default")
	if glyphFor(ramp, 0) != ramp[0] || glyphFor(ramp, 1) != ramp[len(ramp)-1] {
		t.Fatalf("ramp endpoints not reached")
	}
	if glyphFor(ramp, -3) != ramp[0] || glyphFor(ramp, 9) != ramp[len(ramp)-1] {
		t.Fatalf("out of range values should clamp")
	}
	if len(Glyphs("missing")) != len(ramp) {
		t.Fatalf("unknown ramp should fall back to default")
	}
}

func TestFieldCoordsSampleCellCenters(t *testing.T) {
	xs := fieldCoords(4, -1, 1)
	want := []float64{-0.75, -0.25, 0.25, 0.75}
	for i := range want {
		if xs[i] != want[i] {
			t.Fatalf("coords=%v want=%v", xs, want)
		}
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := WritePNG(path, testState(), 16, 9); err != nil {
		t.Fatalf("write png: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 9 {
		t.Fatalf("size=%v", b)
	}
}
