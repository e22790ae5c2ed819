package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/ripplefield/internal/pipeline"
	"github.com/guidoenr/ripplefield/internal/render"
	"github.com/guidoenr/ripplefield/internal/source"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Config configures the application runtime.
type Config struct {
	// Input selection: File wins over Fake, which wins over live capture.
	DeviceName string
	File       string
	Fake       bool
	Seed       int64

	Width         int
	Height        int
	TargetFPS     float64
	WindowFrames  int
	ShowStatusBar bool
	Glyphs        string
	UseANSI       bool
	TrueColor     bool
	Window        bool

	// SnapshotPath is written when the s key is pressed.
	SnapshotPath   string
	SnapshotWidth  int
	SnapshotHeight int
	ProfilePath    string

	Pipeline pipeline.Config
	Log      logrus.FieldLogger
}

type inputEvent int

const (
	inputEventRandomize inputEvent = iota
	inputEventToggleModulation
	inputEventCycleGlyphs
	inputEventSnapshot
	inputEventQuit
)

// App ties together audio input, the visual pipeline and rendering.
type App struct {
	cfg          Config
	engine       *pipeline.Engine
	renderer     *render.Renderer
	input        input
	profiler     *profiler
	log          logrus.FieldLogger
	start        time.Time
	last         time.Time
	width        int
	height       int
	renderHeight int
	inputEvents  chan inputEvent
	rng          *rand.Rand
	glyphNames   []string
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	if cfg.WindowFrames <= 0 {
		cfg.WindowFrames = 2048
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = "ripplefield.png"
	}
	if cfg.SnapshotWidth <= 0 || cfg.SnapshotHeight <= 0 {
		cfg.SnapshotWidth, cfg.SnapshotHeight = 1280, 720
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Pipeline.Log == nil {
		cfg.Pipeline.Log = cfg.Log
	}

	renderHeight := cfg.Height
	if cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	renderer, err := render.New(render.Config{
		Width:     cfg.Width,
		Height:    renderHeight,
		Glyphs:    cfg.Glyphs,
		UseANSI:   cfg.UseANSI,
		TrueColor: cfg.TrueColor,
		Window:    cfg.Window,
		Log:       cfg.Log,
	})
	if err != nil {
		return nil, err
	}

	in, err := openInput(cfg)
	if err != nil {
		_ = renderer.Close()
		return nil, err
	}
	cfg.Log.WithField("input", in.Label()).Info("input ready")

	return &App{
		cfg:          cfg,
		engine:       pipeline.New(cfg.Pipeline),
		renderer:     renderer,
		input:        in,
		profiler:     newProfiler(cfg.ProfilePath, cfg.Log),
		log:          cfg.Log,
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		glyphNames:   render.GlyphNames(),
	}, nil
}

func openInput(cfg Config) (input, error) {
	switch {
	case cfg.File != "":
		src, err := source.Open(cfg.File)
		if err != nil {
			return nil, err
		}
		in, err := newFileInput(filepath.Base(cfg.File), src, cfg.WindowFrames)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		return in, nil
	case cfg.Fake:
		return newFakeGenerator(cfg.Seed), nil
	default:
		return newCaptureInput(cfg.DeviceName, cfg.WindowFrames)
	}
}

// Engine exposes the pipeline for monitoring surfaces.
func (a *App) Engine() *pipeline.Engine { return a.engine }

// Run starts the render loop until context cancellation, a quit key, or the
// end of a file input.
func (a *App) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	terminal := !a.renderer.Windowed()
	if terminal {
		enterAltScreen()
		clearScreen()
		hideCursor()
		defer func() {
			showCursor()
			exitAltScreen()
		}()
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	a.startInputListener(inputCtx)
	a.ensureDimensions()

	a.start = time.Now()
	a.last = a.start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			if evt == inputEventQuit {
				return nil
			}
			a.handle(evt)
		case <-ticker.C:
			err := a.step()
			if errors.Is(err, io.EOF) {
				a.log.Info("input finished")
				return nil
			}
			if errors.Is(err, render.ErrRendererQuit) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	if a.input != nil {
		errs = append(errs, a.input.Close())
	}
	errs = append(errs, a.renderer.Close(), a.profiler.Close())
	return errors.Join(errs...)
}

func (a *App) step() error {
	a.profiler.beginFrame()
	defer a.profiler.endFrame()
	a.ensureDimensions()

	now := time.Now()
	delta := now.Sub(a.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / a.cfg.TargetFPS
	}
	a.last = now

	raw, err := a.input.Next(delta)
	if err != nil {
		return err
	}
	a.profiler.markSection("analyze")

	st := a.engine.Step(raw, now.Sub(a.start).Seconds())
	a.profiler.markSection("step")

	frame := a.renderer.Render(st, 1.0/delta)
	a.profiler.markSection("render")

	status := frame.Status + " | " + a.input.Label()
	if frame.Present != nil {
		err := frame.Present(status)
		a.profiler.markSection("present")
		return err
	}

	var out strings.Builder
	out.WriteString("\x1b[H")
	for _, line := range frame.Lines {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if a.cfg.ShowStatusBar {
		out.WriteString(statusBar(status, a.width))
	}
	_, err = os.Stdout.WriteString(out.String())
	a.profiler.markSection("present")
	return err
}

func (a *App) handle(evt inputEvent) {
	switch evt {
	case inputEventRandomize:
		cfg := a.engine.PaletteConfig()
		cfg.BaseHue = a.rng.Float64() * 360
		a.engine.SetPaletteConfig(cfg)
		a.log.WithField("baseHue", fmt.Sprintf("%.0f", cfg.BaseHue)).Info("randomized palette")
	case inputEventToggleModulation:
		enabled := !a.engine.ModulationEnabled()
		a.engine.SetModulation(enabled)
		a.log.WithField("enabled", enabled).Info("hue modulation toggled")
	case inputEventCycleGlyphs:
		next := nextOption(a.glyphNames, a.renderer.GlyphName())
		a.renderer.SetGlyphs(next)
		a.log.WithField("glyphs", next).Info("glyph ramp changed")
	case inputEventSnapshot:
		if err := render.WritePNG(a.cfg.SnapshotPath, a.engine.State(), a.cfg.SnapshotWidth, a.cfg.SnapshotHeight); err != nil {
			a.log.WithError(err).Warn("snapshot failed")
			return
		}
		a.log.WithField("path", a.cfg.SnapshotPath).Info("snapshot written")
	}
}

func (a *App) ensureDimensions() {
	if a.renderer.Windowed() {
		return
	}
	fd := int(os.Stdout.Fd())
	if fd < 0 || !term.IsTerminal(fd) {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.WithError(err).Warn("keyboard input disabled")
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := keyEvent(char, key)
			if !ok {
				continue
			}
			if evt == inputEventQuit {
				events <- evt
				return
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()
}

func keyEvent(char rune, key keyboard.Key) (inputEvent, bool) {
	if key == keyboard.KeyEsc || key == keyboard.KeyCtrlC {
		return inputEventQuit, true
	}
	switch char {
	case 'q', 'Q':
		return inputEventQuit, true
	case 'r', 'R':
		return inputEventRandomize, true
	case 'm', 'M':
		return inputEventToggleModulation, true
	case 'g', 'G':
		return inputEventCycleGlyphs, true
	case 's', 'S':
		return inputEventSnapshot, true
	}
	return 0, false
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return text + strings.Repeat(" ", width-len(runes))
}

func nextOption(options []string, current string) string {
	if len(options) == 0 {
		return current
	}
	for i, opt := range options {
		if strings.EqualFold(opt, current) {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func clearScreen() {
	fmt.Print("\x1b[2J\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}

// Still drives the pipeline for frames ticks of simulated time without a
// display and writes the final state to cfg.SnapshotPath. Live capture is
// not supported; cfg must select a file or the synthetic input.
func Still(cfg Config, frames int) error {
	if cfg.File == "" && !cfg.Fake {
		return errors.New("still: needs a file or synthetic input")
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.WindowFrames <= 0 {
		cfg.WindowFrames = 2048
	}
	if cfg.SnapshotWidth <= 0 || cfg.SnapshotHeight <= 0 {
		cfg.SnapshotWidth, cfg.SnapshotHeight = 1280, 720
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Pipeline.Log == nil {
		cfg.Pipeline.Log = cfg.Log
	}

	in, err := openInput(cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	engine := pipeline.New(cfg.Pipeline)
	delta := 1.0 / cfg.TargetFPS
	for i := 1; i <= frames; i++ {
		raw, err := in.Next(delta)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		engine.Step(raw, float64(i)*delta)
	}
	if err := render.WritePNG(cfg.SnapshotPath, engine.State(), cfg.SnapshotWidth, cfg.SnapshotHeight); err != nil {
		return err
	}
	cfg.Log.WithFields(logrus.Fields{
		"path":   cfg.SnapshotPath,
		"frames": frames,
	}).Info("still written")
	return nil
}
