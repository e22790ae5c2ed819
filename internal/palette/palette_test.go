package palette

import (
	"math"
	"testing"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestCurveEndpointsAndLinear(t *testing.T) {
	curves := []Curve{Linear, {0.42, 0, 0.58, 1}, {0.25, 0.1, 0.25, 1}, {0.9, 0.1, 0.1, 0.9}}
	for _, c := range curves {
		if c.Eval(0) != 0 || c.Eval(1) != 1 {
			t.Fatalf("curve %+v endpoints: %f %f", c, c.Eval(0), c.Eval(1))
		}
	}
	for _, x := range []float64{0.1, 0.33, 0.5, 0.9} {
		if got := Linear.Eval(x); got != x {
			t.Fatalf("linear(%f)=%f", x, got)
		}
	}
}

func TestCurveInvertsX(t *testing.T) {
	c := Curve{X1: 0.42, Y1: 0, X2: 0.58, Y2: 1}
	if got := c.Eval(0.5); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("symmetric ease at 0.5=%f want 0.5", got)
	}
	for _, x := range []float64{0.05, 0.2, 0.4, 0.7, 0.95} {
		s := c.solveX(x)
		if got := bezier(s, c.X1, c.X2); math.Abs(got-x) > 1e-6 {
			t.Fatalf("solveX(%f): x(s)=%f", x, got)
		}
	}
	if c.Eval(0.2) >= 0.2 {
		t.Fatalf("ease-in-out should start slow, got %f", c.Eval(0.2))
	}
}

func TestCurveIsMonotonic(t *testing.T) {
	c := Curve{X1: 0.8, Y1: 0.1, X2: 0.2, Y2: 0.9}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := c.Eval(float64(i) / 100)
		if v+1e-9 < prev {
			t.Fatalf("curve decreased at %d: %f < %f", i, v, prev)
		}
		prev = v
	}
}

func TestLerpHueTakesShortestPath(t *testing.T) {
	cases := []struct {
		from, to, t, want float64
	}{
		{350, 10, 0.5, 0},
		{10, 350, 0.5, 0},
		{90, 180, 0.5, 135},
		{0, 180, 1, 180},
		{300, 60, 0.25, 330},
	}
	for _, c := range cases {
		got := lerpHue(c.from, c.to, c.t)
		if HueDistance(got, c.want) > 1e-9 {
			t.Fatalf("lerpHue(%v,%v,%v)=%v want %v", c.from, c.to, c.t, got, c.want)
		}
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	a := Generate(cfg, 10)
	b := Generate(cfg, 10)
	if len(a) != 10 {
		t.Fatalf("len=%d want 10", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGenerateOrdersDarkestToBrightest(t *testing.T) {
	p := Generate(DefaultConfig(), 10)
	prev := -1.0
	for i, c := range p {
		l, _, _ := c.OkLch()
		if l <= prev {
			t.Fatalf("step %d lightness %f not above %f", i, l, prev)
		}
		prev = l
		if !c.IsValid() {
			t.Fatalf("step %d out of gamut: %v", i, c)
		}
	}
}

func TestGenerateHonoursExplicitHue(t *testing.T) {
	hue := 30.0
	cfg := DefaultConfig()
	cfg.Dark = Anchor{Lightness: 0.5, Chroma: 0.1, Hue: &hue}
	cfg.Bright = Anchor{Lightness: 0.7, Chroma: 0.1, Hue: &hue}
	cfg.BaseHue = 200
	for i, c := range Generate(cfg, 5) {
		_, _, h := c.OkLch()
		if HueDistance(h, hue) > 2 {
			t.Fatalf("step %d hue=%f want≈%f", i, h, hue)
		}
	}
}

func TestGenerateSmallStepCounts(t *testing.T) {
	if Generate(DefaultConfig(), 0) != nil {
		t.Fatalf("expected nil palette for zero steps")
	}
	if got := len(Generate(DefaultConfig(), 1)); got != 1 {
		t.Fatalf("len=%d want 1", got)
	}
}

func TestConfigEqualDereferencesHue(t *testing.T) {
	h1, h2 := 40.0, 40.0
	a := DefaultConfig()
	b := DefaultConfig()
	a.Dark.Hue = &h1
	b.Dark.Hue = &h2
	if !a.Equal(b) {
		t.Fatalf("configs with equal hue values should be equal")
	}
	h2 = 41
	if a.Equal(b) {
		t.Fatalf("configs with different hues should differ")
	}
	b.Dark.Hue = nil
	if a.Equal(b) {
		t.Fatalf("explicit and offset hue should differ")
	}
}

func TestShiftedRotatesAllHues(t *testing.T) {
	hue := 350.0
	cfg := DefaultConfig()
	cfg.Bright.Hue = &hue
	s := cfg.Shifted(20)
	if HueDistance(s.Dark.ResolveHue(s.BaseHue), cfg.Dark.ResolveHue(cfg.BaseHue)+20) > 1e-9 {
		t.Fatalf("dark hue not shifted")
	}
	if math.Abs(*s.Bright.Hue-10) > 1e-9 {
		t.Fatalf("explicit hue=%f want 10", *s.Bright.Hue)
	}
	if *cfg.Bright.Hue != 350 {
		t.Fatalf("Shifted mutated the original config")
	}
}

func TestGeneratorCachesUntilConfigChanges(t *testing.T) {
	g := NewGenerator(8)
	cfg := DefaultConfig()
	first := g.Palette(cfg)
	second := g.Palette(cfg)
	if g.Generations() != 1 || &first[0] != &second[0] {
		t.Fatalf("expected cached palette, generations=%d", g.Generations())
	}
	cfg.BaseHue += 10
	g.Palette(cfg)
	if g.Generations() != 2 {
		t.Fatalf("expected regeneration, generations=%d", g.Generations())
	}
}

func newTestModulator() *Modulator {
	logger, _ := logtest.NewNullLogger()
	cfg := DefaultModulatorConfig()
	cfg.Log = logger
	return NewModulator(DefaultConfig(), cfg)
}

func bassFrame(now, bass, treble float64) analyzer.Frame {
	var f analyzer.Frame
	f.Time = now
	f.Smoothed[analyzer.Bass] = bass
	f.Smoothed[analyzer.Treble] = treble
	return f
}

func TestModulatorShiftsTowardBass(t *testing.T) {
	m := newTestModulator()
	for i := 0; i < 120; i++ {
		m.Update(bassFrame(float64(i)/60, 0.9, 0.1))
	}
	want := (0.1 - 0.9) / 1.0 * m.Config().MaxShift
	if m.Shift() >= 0 {
		t.Fatalf("bass-heavy input should shift negative, got %f", m.Shift())
	}
	if math.Abs(m.Shift()-want) > 2 {
		t.Fatalf("shift=%f want≈%f", m.Shift(), want)
	}

	base := Generate(DefaultConfig(), DefaultSteps)
	if m.Palette()[0] == base[0] {
		t.Fatalf("modulated palette should differ from base")
	}
}

func TestModulatorIgnoresQuietInput(t *testing.T) {
	m := newTestModulator()
	if got := m.TargetShift(bassFrame(0, 0.01, 0.02)); got != 0 {
		t.Fatalf("target shift below threshold=%f want 0", got)
	}
	for i := 0; i < 30; i++ {
		m.Update(bassFrame(float64(i)/60, 0.01, 0.02))
	}
	if m.Shift() != 0 || m.Generations() != 1 {
		t.Fatalf("quiet input should not modulate: shift=%f generations=%d", m.Shift(), m.Generations())
	}
}

func TestModulatorRegeneratesOnlyPastThreshold(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	cfg := DefaultModulatorConfig()
	cfg.Log = logger
	cfg.RegenThreshold = 5
	m := NewModulator(DefaultConfig(), cfg)

	m.Update(bassFrame(0, 0.4, 0.6))
	if m.Generations() != 1 {
		t.Fatalf("small shift should not regenerate, generations=%d", m.Generations())
	}
	for i := 1; i < 240; i++ {
		m.Update(bassFrame(float64(i)/60, 0, 1))
	}
	if m.Generations() < 2 || m.Shift() <= 5 {
		t.Fatalf("large shift should regenerate: shift=%f generations=%d", m.Shift(), m.Generations())
	}
}

func TestModulatorDisableSnapsBack(t *testing.T) {
	m := newTestModulator()
	for i := 0; i < 60; i++ {
		m.Update(bassFrame(float64(i)/60, 1, 0))
	}
	m.SetEnabled(false)
	base := Generate(DefaultConfig(), DefaultSteps)
	p := m.Palette()
	for i := range base {
		if p[i] != base[i] {
			t.Fatalf("step %d not restored after disable", i)
		}
	}
	if m.Shift() != 0 {
		t.Fatalf("shift=%f want 0", m.Shift())
	}
	m.Update(bassFrame(2, 1, 0))
	if m.Shift() != 0 {
		t.Fatalf("disabled modulator must not shift")
	}

	m.SetEnabled(true)
	m.Update(bassFrame(3, 1, 0))
	if _, primed := m.shift.LastUpdate(); !primed {
		t.Fatalf("expected smoother to restart after re-enable")
	}
}

func TestModulatorSetBaseResets(t *testing.T) {
	m := newTestModulator()
	for i := 0; i < 60; i++ {
		m.Update(bassFrame(float64(i)/60, 0, 1))
	}
	cfg := DefaultConfig()
	cfg.BaseHue = 120
	m.SetBase(cfg)
	if m.Shift() != 0 {
		t.Fatalf("shift=%f want 0 after base change", m.Shift())
	}
	want := Generate(cfg, DefaultSteps)
	if m.Palette()[3] != want[3] {
		t.Fatalf("palette not regenerated from new base")
	}
}
