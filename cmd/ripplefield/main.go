package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/guidoenr/ripplefield/internal/app"
	"github.com/guidoenr/ripplefield/internal/audio"
	"github.com/guidoenr/ripplefield/internal/pipeline"
	"github.com/guidoenr/ripplefield/internal/preset"
	"github.com/guidoenr/ripplefield/internal/render"
	"github.com/guidoenr/ripplefield/internal/web"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

func main() {
	var (
		deviceName   = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		listDevs     = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		file         = flag.String("file", "", "Play a wav, mp3 or ogg file instead of live capture")
		noAudio      = flag.Bool("no-audio", false, "Run with synthetic audio (for testing)")
		width        = flag.Int("width", 80, "Frame width in cells (or pixels with -window)")
		height       = flag.Int("height", 24, "Frame height in cells (or pixels with -window)")
		targetFPS    = flag.Float64("fps", 30, "Target frames per second")
		bufferSize   = flag.Int("buffer-size", 2048, "Analysis window in frames (power of two recommended)")
		presetPath   = flag.String("preset", "", "JSON preset overriding the default tuning")
		savePreset   = flag.String("save-preset", "", "Where the web UI saves presets")
		glyphs       = flag.String("glyphs", "default", fmt.Sprintf("Glyph ramp %v", render.GlyphNames()))
		noColor      = flag.Bool("no-color", false, "Disable ANSI color output")
		trueColor    = flag.Bool("truecolor", os.Getenv("COLORTERM") == "truecolor", "Use 24-bit color escapes")
		window       = flag.Bool("window", false, "Render into an SDL window (requires -tags sdl)")
		showStatus   = flag.Bool("status", true, "Display status bar")
		noModulation = flag.Bool("no-modulation", false, "Start with audio hue modulation disabled")
		webAddr      = flag.String("web", "", "Serve the control UI on this address, e.g. :8080")
		profilePath  = flag.String("profile", "", "Append per-frame timings to this CSV file")
		snapshot     = flag.String("snapshot", "ripplefield.png", "PNG path written by the s key or -still")
		still        = flag.Int("still", 0, "Render this many frames offline, write -snapshot and exit")
		debug        = flag.Bool("debug", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !*debug, FullTimestamp: true})
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	if *width <= 0 || *height <= 0 {
		logger.Fatalf("invalid dimensions: width=%d height=%d", *width, *height)
	}
	if *targetFPS <= 0 {
		logger.Fatalf("fps must be positive (got %.2f)", *targetFPS)
	}
	if *bufferSize <= 0 {
		logger.Fatalf("buffer-size must be positive (got %d)", *bufferSize)
	}

	if !*window && *still == 0 {
		if fd := int(os.Stdout.Fd()); fd >= 0 {
			if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 0 {
				*width, *height = w, h
			}
		}
	}

	pipeCfg := pipeline.DefaultConfig()
	settings := preset.Defaults()
	if *presetPath != "" {
		s, err := preset.LoadJSON(*presetPath)
		if err != nil {
			logger.Fatalf("load preset: %v", err)
		}
		settings = s
		logger.WithField("preset", *presetPath).Info("preset loaded")
	}
	settings.Apply(&pipeCfg)
	pipeCfg.Log = logger

	cfg := app.Config{
		DeviceName:    *deviceName,
		File:          *file,
		Fake:          *noAudio,
		Width:         *width,
		Height:        *height,
		TargetFPS:     *targetFPS,
		WindowFrames:  *bufferSize,
		ShowStatusBar: *showStatus,
		Glyphs:        *glyphs,
		UseANSI:       !*noColor,
		TrueColor:     *trueColor,
		Window:        *window,
		SnapshotPath:  *snapshot,
		ProfilePath:   *profilePath,
		Pipeline:      pipeCfg,
		Log:           logger,
	}

	if *still > 0 {
		if err := app.Still(cfg, *still); err != nil {
			logger.Fatalf("still: %v", err)
		}
		return
	}

	needAudio := (*file == "" && !*noAudio) || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
		logger.WithField("portaudio", audio.Version()).Debug("audio initialized")
	}

	if *listDevs {
		devices, err := audio.ListDevices()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Input Devices ===\n\n")
		for _, dev := range devices {
			fmt.Println(dev)
		}
		if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
			fmt.Printf("\nAuto-detected input: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		logger.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()
	if *noModulation || !settings.Modulation.Enabled {
		a.Engine().SetModulation(false)
	}

	if *webAddr != "" {
		srv := web.NewServer(a.Engine(), web.Config{PresetPath: *savePreset, Log: logger})
		go func() {
			if err := srv.Run(ctx, *webAddr); err != nil {
				logger.WithError(err).Error("web server stopped")
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Errorf("runtime error: %v", err)
		os.Exit(1)
	}
}
