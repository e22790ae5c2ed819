package source

import (
	"errors"
	"fmt"
	"io"
)

// Window keeps the most recent Size frames of an interleaved stream.
type Window struct {
	size     int
	channels int
	data     []float32
	scratch  []float32
}

// NewWindow creates a zero-filled window of size frames.
func NewWindow(size, channels int) (*Window, error) {
	if size <= 0 || channels <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Window{
		size:     size,
		channels: channels,
		data:     make([]float32, size*channels),
	}, nil
}

// Channels returns the interleave factor.
func (w *Window) Channels() int { return w.channels }

// Push appends interleaved samples, discarding the oldest. Trailing values
// that do not fill a whole frame are dropped.
func (w *Window) Push(samples []float32) {
	samples = samples[:len(samples)-len(samples)%w.channels]
	if len(samples) >= len(w.data) {
		copy(w.data, samples[len(samples)-len(w.data):])
		return
	}
	copy(w.data, w.data[len(samples):])
	copy(w.data[len(w.data)-len(samples):], samples)
}

// Samples returns the window contents, oldest first. The slice is only valid
// until the next Push.
func (w *Window) Samples() []float32 { return w.data }

// Snapshot returns a copy of the window contents.
func (w *Window) Snapshot() []float32 {
	out := make([]float32, len(w.data))
	copy(out, w.data)
	return out
}

// Fill reads hop frames from src into the window. It returns the number of
// frames read; io.EOF is returned once src is exhausted and nothing was read.
func (w *Window) Fill(src Source, hop int) (int, error) {
	if src.Channels() != w.channels {
		return 0, fmt.Errorf("fill: source has %d channels, window %d", src.Channels(), w.channels)
	}
	need := hop * w.channels
	if cap(w.scratch) < need {
		w.scratch = make([]float32, need)
	}
	buf := w.scratch[:need]

	read := 0
	for read < need {
		n, err := src.ReadSamples(buf[read:])
		read += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return read / w.channels, err
		}
		if n == 0 {
			break
		}
	}
	if read == 0 {
		return 0, io.EOF
	}
	w.Push(buf[:read])
	return read / w.channels, nil
}
