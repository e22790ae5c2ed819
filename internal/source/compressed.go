package source

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// mp3Source converts go-mp3's 16-bit little-endian stereo PCM to float32.
type mp3Source struct {
	dec        *gomp3.Decoder
	sampleRate int
	buf        []byte
}

func decodeMP3(r io.ReadSeeker) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return &mp3Source{dec: dec, sampleRate: dec.SampleRate(), buf: make([]byte, 8192)}, nil
}

func (s *mp3Source) SampleRate() int { return s.sampleRate }
func (s *mp3Source) Channels() int   { return 2 }
func (s *mp3Source) Close() error    { return nil }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("mp3: %w", err)
	}
	samples := n / 2
	if samples == 0 {
		return 0, io.EOF
	}
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
		dst[i] = float32(v) / 32768.0
	}
	return samples, nil
}

type oggSource struct {
	dec *oggvorbis.Reader
}

func decodeOgg(r io.ReadSeeker) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: %w", err)
	}
	return &oggSource{dec: dec}, nil
}

func (s *oggSource) SampleRate() int { return s.dec.SampleRate() }
func (s *oggSource) Channels() int   { return s.dec.Channels() }
func (s *oggSource) Close() error    { return nil }

func (s *oggSource) ReadSamples(dst []float32) (int, error) {
	ch := s.dec.Channels()
	frames := len(dst) / ch
	if frames == 0 {
		return 0, nil
	}
	n, err := s.dec.Read(dst[:frames*ch])
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("ogg: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
