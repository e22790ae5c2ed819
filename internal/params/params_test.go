package params

import (
	"math"
	"testing"

	"github.com/guidoenr/ripplefield/internal/analyzer"
)

func TestUpdateTimeAdvances(t *testing.T) {
	p := Defaults()
	p.Speed = 1.0
	p.UpdateTime(0.5)
	if p.Time != 0.5 {
		t.Fatalf("expected time 0.5, got %f", p.Time)
	}
	p.UpdateTime(-1)
	if p.Time != 0.5 {
		t.Fatalf("negative delta must not move time, got %f", p.Time)
	}
}

func TestTimeDebtAccumulatesUnderLoudAudio(t *testing.T) {
	p := Defaults()
	for i := 0; i < 10; i++ {
		p.UpdateTimeDebt(0.8, 0.1)
	}
	if want := p.AccumulationRate * 1.0; math.Abs(p.TimeDebt-want) > 1e-9 {
		t.Fatalf("time debt=%f want=%f", p.TimeDebt, want)
	}
}

func TestTimeDebtClampsToMaxOffset(t *testing.T) {
	p := Defaults()
	p.UpdateTimeDebt(1, 100)
	if p.TimeDebt != p.MaxTimeOffset {
		t.Fatalf("time debt=%f want=%f", p.TimeDebt, p.MaxTimeOffset)
	}
}

func TestTimeDebtHoldsBetweenThresholds(t *testing.T) {
	p := Defaults()
	p.TimeDebt = 1
	p.UpdateTimeDebt(0.2, 1)
	if p.TimeDebt != 1 {
		t.Fatalf("time debt should hold, got %f", p.TimeDebt)
	}
}

func TestTimeDebtDecaysMonotonicallyInSilence(t *testing.T) {
	p := Defaults()
	p.TimeDebt = 1.5
	prev := p.TimeDebt
	for i := 0; i < 10; i++ {
		p.ApplyFeatures(analyzer.Frame{}, 0.2)
		if p.TimeDebt > prev {
			t.Fatalf("frame %d: debt grew from %f to %f", i, prev, p.TimeDebt)
		}
		prev = p.TimeDebt
	}
	if p.TimeDebt != 0 {
		t.Fatalf("time debt=%f want 0", p.TimeDebt)
	}
	if p.NoiseTime() != p.Time {
		t.Fatalf("noise time should equal clock once debt is paid")
	}
}

func TestNormalizeClampsTunables(t *testing.T) {
	p := Parameters{Octaves: 20, Gain: 2, BrightnessFloor: -1, StereoInfluence: 3, TimeDebt: 9, MaxTimeOffset: 2}
	p.Normalize()
	def := Defaults()
	if p.Octaves != 8 || p.Gain != def.Gain || p.NoiseScale != def.NoiseScale {
		t.Fatalf("unexpected noise tunables %+v", p)
	}
	if p.BrightnessFloor != 0 || p.StereoInfluence != 1 || p.TimeDebt != 2 {
		t.Fatalf("unexpected clamped tunables %+v", p)
	}
}
