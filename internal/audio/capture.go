package audio

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// ErrNoInputDevice is returned when no capture-capable device exists.
var ErrNoInputDevice = errors.New("no suitable audio input device found")

// Capture wraps a PortAudio input stream and keeps the newest interleaved
// stereo (or mono) window for analysis.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	channels   int
	device     *portaudio.DeviceInfo
	ring       *frameRing
}

// Config controls how a Capture instance is created.
type Config struct {
	DeviceName string
	// WindowFrames is the number of frames kept for analysis.
	WindowFrames int
	// Channels requested; clamped to what the device offers, at most 2.
	Channels int
}

const defaultWindowFrames = 2048

// NewCapture opens and starts a PortAudio input stream. Initialize must have
// been called.
func NewCapture(cfg Config) (*Capture, error) {
	if cfg.WindowFrames <= 0 {
		cfg.WindowFrames = defaultWindowFrames
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	channels := min(cfg.Channels, device.MaxInputChannels, 2)

	capture := &Capture{
		sampleRate: device.DefaultSampleRate,
		channels:   channels,
		device:     device,
		ring:       newFrameRing(cfg.WindowFrames, channels),
	}

	framesPerBuffer := cfg.WindowFrames / 4
	if framesPerBuffer < 64 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      capture.sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, capture.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	capture.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return capture, nil
}

// Close stops and closes the underlying PortAudio stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil && !isInvalidStreamState(err) {
		return fmt.Errorf("stop stream: %w", err)
	}
	return c.stream.Close()
}

// SampleRate returns the stream sample rate.
func (c *Capture) SampleRate() float64 { return c.sampleRate }

// Channels returns the interleave factor of Samples.
func (c *Capture) Channels() int { return c.channels }

// Device returns the PortAudio device associated with the capture stream.
func (c *Capture) Device() *portaudio.DeviceInfo { return c.device }

// Samples returns a copy of the newest interleaved window, oldest frame first.
func (c *Capture) Samples() []float32 { return c.ring.snapshot() }

// Frames counts the frames captured since the stream started.
func (c *Capture) Frames() uint64 { return c.ring.frames() }

func (c *Capture) process(in []float32) {
	c.ring.write(in)
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
	}

	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	defaultIndex := -1
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil && host.DefaultInputDevice != nil {
		defaultIndex = host.DefaultInputDevice.Index
	}
	candidates := make([]candidate, 0, len(devices))
	for _, d := range devices {
		if d == nil {
			continue
		}
		candidates = append(candidates, candidate{
			Name:      d.Name,
			Channels:  d.MaxInputChannels,
			IsDefault: d.Index == defaultIndex,
			device:    d,
		})
	}
	if best := pickBest(candidates); best != nil {
		return best.device, nil
	}
	return nil, ErrNoInputDevice
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

// candidate is the subset of device info used for ranking.
type candidate struct {
	Name      string
	Channels  int
	IsDefault bool
	device    *portaudio.DeviceInfo
}

var loopbackKeywords = []string{"monitor", "loopback", "stereo mix", "mix", "what u hear"}

// score prefers stereo loopback sources so the visuals follow what is playing.
func (c candidate) score() int {
	if c.Channels <= 0 {
		return -1
	}
	s := min(c.Channels, 2) * 10
	if c.IsDefault {
		s += 40
	}
	lower := strings.ToLower(c.Name)
	for _, kw := range loopbackKeywords {
		if strings.Contains(lower, kw) {
			s += 30
			break
		}
	}
	if strings.Contains(lower, "default") {
		s += 5
	}
	return s
}

func pickBest(candidates []candidate) *candidate {
	valid := candidates[:0:0]
	for _, c := range candidates {
		if c.score() >= 0 {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool {
		si, sj := valid[i].score(), valid[j].score()
		if si == sj {
			return strings.ToLower(valid[i].Name) < strings.ToLower(valid[j].Name)
		}
		return si > sj
	})
	return &valid[0]
}

// isInvalidStreamState reports whether err comes from stopping a stopped stream.
func isInvalidStreamState(err error) bool {
	return err != nil && strings.Contains(err.Error(), "PaErrorCode -9986")
}

// AutoDetectDevice returns the best available input device PortAudio can find.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findDevice("")
}
