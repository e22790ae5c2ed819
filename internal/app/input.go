package app

import (
	"fmt"
	"math"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/audio"
	"github.com/guidoenr/ripplefield/internal/source"
	"github.com/guidoenr/ripplefield/internal/spectrum"
)

// input produces one raw analysis frame per render tick.
type input interface {
	Next(delta float64) (analyzer.RawFrame, error)
	Label() string
	Close() error
}

type captureInput struct {
	capture  *audio.Capture
	spectrum *spectrum.Analyzer
}

func newCaptureInput(deviceName string, windowFrames int) (*captureInput, error) {
	capture, err := audio.NewCapture(audio.Config{
		DeviceName:   deviceName,
		WindowFrames: windowFrames,
		Channels:     2,
	})
	if err != nil {
		return nil, fmt.Errorf("audio capture: %w", err)
	}
	return &captureInput{
		capture: capture,
		spectrum: spectrum.New(spectrum.Config{
			SampleRate: capture.SampleRate(),
			Size:       windowFrames,
		}),
	}, nil
}

func (c *captureInput) Next(float64) (analyzer.RawFrame, error) {
	return c.spectrum.Analyze(c.capture.Samples(), c.capture.Channels()), nil
}

func (c *captureInput) Label() string {
	if info := c.capture.Device(); info != nil {
		return "mic=" + info.Name
	}
	return "mic"
}

func (c *captureInput) Close() error { return c.capture.Close() }

// fileInput plays a decoded file at wall-clock speed. Next returns io.EOF
// once the file is exhausted.
type fileInput struct {
	name     string
	src      source.Source
	window   *source.Window
	spectrum *spectrum.Analyzer
	carry    float64
}

func newFileInput(name string, src source.Source, windowFrames int) (*fileInput, error) {
	window, err := source.NewWindow(windowFrames, src.Channels())
	if err != nil {
		return nil, err
	}
	return &fileInput{
		name:   name,
		src:    src,
		window: window,
		spectrum: spectrum.New(spectrum.Config{
			SampleRate: float64(src.SampleRate()),
			Size:       windowFrames,
		}),
	}, nil
}

func (f *fileInput) Next(delta float64) (analyzer.RawFrame, error) {
	want := delta*float64(f.src.SampleRate()) + f.carry
	hop := int(want)
	f.carry = want - float64(hop)
	if hop <= 0 {
		return f.spectrum.Analyze(f.window.Samples(), f.window.Channels()), nil
	}
	if _, err := f.window.Fill(f.src, hop); err != nil {
		return analyzer.RawFrame{}, err
	}
	return f.spectrum.Analyze(f.window.Samples(), f.window.Channels()), nil
}

func (f *fileInput) Label() string { return "file=" + f.name }

func (f *fileInput) Close() error { return f.src.Close() }

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
