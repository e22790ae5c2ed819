package source

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavSource struct {
	dec        *wav.Decoder
	sampleRate int
	channels   int
	scale      float32
	buf        *audio.IntBuffer
}

func decodeWAV(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seek to pcm: %w", err)
	}
	depth := int(dec.BitDepth)
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%d bits: %w", depth, ErrUnsupportedBitDepth)
	}
	format := dec.Format()
	return &wavSource{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      float32(int64(1) << (depth - 1)),
		buf:        &audio.IntBuffer{Format: format, SourceBitDepth: depth},
	}, nil
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("read pcm: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	// 8-bit wav is unsigned.
	offset := 0
	if s.buf.SourceBitDepth == 8 {
		offset = 128
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(s.buf.Data[i]-offset) / s.scale
	}
	return n, nil
}
