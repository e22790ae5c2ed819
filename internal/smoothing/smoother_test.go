package smoothing

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestTimeConstantFromTempo(t *testing.T) {
	// sixty-fourth note at 120 BPM: 0.5s per beat * 4 / 64
	got := TimeConstant(120, 1.0/64, 10*time.Millisecond)
	if want := 0.03125; math.Abs(got-want) > 1e-12 {
		t.Fatalf("TimeConstant=%f want=%f", got, want)
	}
}

func TestTimeConstantFallsBackWithoutTempo(t *testing.T) {
	got := TimeConstant(0, 1.0/64, 40*time.Millisecond)
	if math.Abs(got-0.04) > 1e-12 {
		t.Fatalf("expected fallback 0.04s, got %f", got)
	}
}

func TestAdvanceSelectsAttackAndRelease(t *testing.T) {
	up := Advance(0, 1, 0.1, 0.1, 10)
	if want := 1 - math.Exp(-1); math.Abs(up-want) > 1e-12 {
		t.Fatalf("attack step=%f want=%f", up, want)
	}
	down := Advance(1, 0, 0.1, 10, 0.1)
	if want := math.Exp(-1); math.Abs(down-want) > 1e-12 {
		t.Fatalf("release step=%f want=%f", down, want)
	}
}

func TestAdvanceEqualTargetUsesRelease(t *testing.T) {
	if got := Advance(0.5, 0.5, 0.1, 0, 1); got != 0.5 {
		t.Fatalf("expected value to stay at target, got %f", got)
	}
}

func TestAdvanceNeverOvershoots(t *testing.T) {
	cases := []struct {
		current, target float64
	}{
		{0, 1}, {1, 0}, {0.3, 0.31}, {0.9, 0.1},
	}
	for _, c := range cases {
		v := c.current
		for i := 0; i < 200; i++ {
			v = Advance(v, c.target, 0.05, 0.02, 0.3)
			lo, hi := math.Min(c.current, c.target), math.Max(c.current, c.target)
			if v < lo-1e-12 || v > hi+1e-12 {
				t.Fatalf("value %f left [%f,%f]", v, lo, hi)
			}
		}
	}
}

func TestAdvanceDegenerateInputIsNoop(t *testing.T) {
	if got := Advance(0.4, 1, 0, 0.1, 0.1); got != 0.4 {
		t.Fatalf("zero delta changed value: %f", got)
	}
	if got := Advance(0.4, 1, -1, 0.1, 0.1); got != 0.4 {
		t.Fatalf("negative delta changed value: %f", got)
	}
	if got := Advance(0.4, math.NaN(), 0.1, 0.1, 0.1); got != 0.4 {
		t.Fatalf("NaN target changed value: %f", got)
	}
	if got := Advance(0.4, math.Inf(1), 0.1, 0.1, 0.1); got != 0.4 {
		t.Fatalf("Inf target changed value: %f", got)
	}
}

func TestSmootherConvergesWithinFiveTimeConstants(t *testing.T) {
	for _, start := range []float64{0, 0.25, 1} {
		s := New(Config{AttackNote: 1.0 / 16, ReleaseNote: 1.0 / 8})
		s.Reset(start)
		const bpm = 120
		attack, release := s.TimeConstants(bpm)
		tc := math.Max(attack, release)
		target := 0.6
		dt := tc / 20
		now := 0.0
		s.Update(s.Value(), now, bpm)
		for now < 5*tc {
			now += dt
			s.Update(target, now, bpm)
		}
		if math.Abs(s.Value()-target) > 0.01*target {
			t.Fatalf("start=%f: value %f not within 1%% of %f", start, s.Value(), target)
		}
	}
}

func TestSmootherLogsDegenerateUpdate(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s := New(Config{Name: "bass", AttackNote: 1.0 / 64, ReleaseNote: 1.0 / 8, Log: logger})
	s.Update(0.5, 1.0, 120)
	before := s.Value()

	if got := s.Update(0.9, 1.0, 120); got != before {
		t.Fatalf("repeated timestamp changed value: %f -> %f", before, got)
	}
	if got := s.Update(math.NaN(), 2.0, 120); got != before {
		t.Fatalf("NaN target changed value: %f -> %f", before, got)
	}

	if len(hook.Entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(hook.Entries))
	}
	for _, e := range hook.Entries {
		if e.Level != logrus.DebugLevel {
			t.Fatalf("expected debug level, got %s", e.Level)
		}
	}
	if last, ok := s.LastUpdate(); !ok || last != 1.0 {
		t.Fatalf("timestamp should remain at 1.0, got %f (%v)", last, ok)
	}
}

func TestSmootherFirstUpdateUsesNominalInterval(t *testing.T) {
	s := New(Config{AttackFallback: 10 * time.Millisecond, ReleaseFallback: 100 * time.Millisecond})
	got := s.Update(1, 5.0, 0)
	want := 1 - math.Exp(-DefaultFrameInterval/0.01)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("first update=%f want=%f", got, want)
	}
}

func TestDecayPeak(t *testing.T) {
	if got := DecayPeak(0.2, 0.5, 0.1, 1); got != 0.5 {
		t.Fatalf("rising value should become peak, got %f", got)
	}
	got := DecayPeak(1, 0.5, 0.1, 0.1)
	if want := 0.5 + 0.5*math.Exp(-1); math.Abs(got-want) > 1e-12 {
		t.Fatalf("decayed peak=%f want=%f", got, want)
	}
	p := 1.0
	for i := 0; i < 100; i++ {
		p = DecayPeak(p, 0.3, 0.05, 0.1)
		if p < 0.3 {
			t.Fatalf("peak fell below value: %f", p)
		}
	}
}
