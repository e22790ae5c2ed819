package audio

import "sync"

// frameRing is an interleaved ring buffer holding whole frames. Writers are
// PortAudio callbacks; readers copy out the newest window.
type frameRing struct {
	mu       sync.RWMutex
	channels int
	data     []float32
	index    int
	written  uint64
}

func newFrameRing(frames, channels int) *frameRing {
	return &frameRing{channels: channels, data: make([]float32, frames*channels)}
}

// write appends interleaved samples; a trailing partial frame is dropped.
func (r *frameRing) write(in []float32) {
	in = in[:len(in)-len(in)%r.channels]
	if len(in) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.written += uint64(len(in) / r.channels)
	if len(in) >= len(r.data) {
		copy(r.data, in[len(in)-len(r.data):])
		r.index = 0
		return
	}
	n := copy(r.data[r.index:], in)
	if n < len(in) {
		copy(r.data, in[n:])
	}
	r.index = (r.index + len(in)) % len(r.data)
}

// snapshot returns the buffer oldest first.
func (r *frameRing) snapshot() []float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]float32, len(r.data))
	n := copy(out, r.data[r.index:])
	copy(out[n:], r.data[:r.index])
	return out
}

// frames returns the total number of frames ever written.
func (r *frameRing) frames() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.written
}
