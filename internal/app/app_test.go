package app

import (
	"bufio"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/pipeline"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestFakeGeneratorStaysInRange(t *testing.T) {
	gen := newFakeGenerator(1)
	for i := 0; i < 200; i++ {
		raw, err := gen.Next(1.0 / 60)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		for b := 0; b < analyzer.NumBands; b++ {
			for _, v := range []float64{raw.Bands[b], raw.Left[b], raw.Right[b]} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("frame %d band %d out of range: %v", i, b, v)
				}
			}
		}
		if raw.RMS < 0 || raw.RMS > 1 {
			t.Fatalf("rms out of range: %v", raw.RMS)
		}
	}
}

func TestFakeGeneratorDrivesBassOnsets(t *testing.T) {
	gen := newFakeGenerator(7)
	engine := pipeline.New(pipeline.Config{})
	now := 0.0
	var bassBeats int
	for i := 0; i < 240; i++ {
		raw, _ := gen.Next(1.0 / 60)
		now += 1.0 / 60
		st := engine.Step(raw, now)
		if st.Features.Beats[analyzer.Bass].Onset {
			bassBeats++
		}
	}
	if bassBeats < 4 {
		t.Fatalf("expected regular bass onsets over four seconds, got %d", bassBeats)
	}
}

type sliceSource struct {
	data []float32
	pos  int
}

func (s *sliceSource) SampleRate() int { return 1000 }
func (s *sliceSource) Channels() int   { return 2 }
func (s *sliceSource) Close() error    { return nil }

func (s *sliceSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(dst, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func TestFileInputPacesByDeltaAndEnds(t *testing.T) {
	src := &sliceSource{data: make([]float32, 2*150)}
	in, err := newFileInput("test.wav", src, 256)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := in.Next(0.1); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if src.pos != 200 {
		t.Fatalf("expected 100 frames consumed, got %d samples", src.pos)
	}
	if _, err := in.Next(0.1); err != nil {
		t.Fatalf("partial read should succeed: %v", err)
	}
	if _, err := in.Next(0.1); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if in.Label() != "file=test.wav" {
		t.Fatalf("label=%q", in.Label())
	}
}

func TestStatusBarPadsAndTruncates(t *testing.T) {
	if got := statusBar("abc", 6); got != "abc   " {
		t.Fatalf("pad=%q", got)
	}
	if got := statusBar("abcdef", 4); got != "abcd" {
		t.Fatalf("truncate=%q", got)
	}
	if got := statusBar("abc", 0); got != "abc" {
		t.Fatalf("zero width=%q", got)
	}
}

func TestNextOptionCycles(t *testing.T) {
	opts := []string{"a", "b", "c"}
	if nextOption(opts, "c") != "a" || nextOption(opts, "A") != "b" || nextOption(opts, "zz") != "a" {
		t.Fatalf("unexpected cycling")
	}
	if nextOption(nil, "x") != "x" {
		t.Fatalf("empty options should keep current")
	}
}

func TestKeyEventMapping(t *testing.T) {
	cases := []struct {
		char rune
		key  keyboard.Key
		want inputEvent
		ok   bool
	}{
		{0, keyboard.KeyEsc, inputEventQuit, true},
		{'q', 0, inputEventQuit, true},
		{'m', 0, inputEventToggleModulation, true},
		{'R', 0, inputEventRandomize, true},
		{'g', 0, inputEventCycleGlyphs, true},
		{'s', 0, inputEventSnapshot, true},
		{'x', 0, 0, false},
	}
	for _, c := range cases {
		got, ok := keyEvent(c.char, c.key)
		if ok != c.ok || (ok && got != c.want) {
			t.Fatalf("keyEvent(%q,%v)=%v,%v", c.char, c.key, got, ok)
		}
	}
}

func TestProfilerWritesSections(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	path := filepath.Join(t.TempDir(), "profile.csv")
	p := newProfiler(path, logger)
	if p == nil {
		t.Fatalf("expected profiler")
	}
	p.beginFrame()
	p.markSection("analyze")
	p.markSection("render")
	p.endFrame()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 4 || lines[0] != "timestamp,frame,section,delta_ms" {
		t.Fatalf("unexpected csv %v", lines)
	}
	if !strings.Contains(lines[1], ",1,analyze,") || !strings.Contains(lines[3], ",frame_total,") {
		t.Fatalf("unexpected rows %v", lines[1:])
	}
}

func TestNilProfilerIsNoop(t *testing.T) {
	var p *profiler
	p.beginFrame()
	p.markSection("x")
	p.endFrame()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	logger, hook := logtest.NewNullLogger()
	if newProfiler("", logger) != nil || len(hook.Entries) != 0 {
		t.Fatalf("empty path should disable profiling silently")
	}
}

func TestStillWritesPNG(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	path := filepath.Join(t.TempDir(), "still.png")
	err := Still(Config{
		Fake:           true,
		Seed:           3,
		SnapshotPath:   path,
		SnapshotWidth:  32,
		SnapshotHeight: 18,
		Log:            logger,
	}, 45)
	if err != nil {
		t.Fatalf("still: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}
	if err := Still(Config{SnapshotPath: path}, 1); err == nil {
		t.Fatalf("live capture should be rejected")
	}
}
