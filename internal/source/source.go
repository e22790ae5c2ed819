// Package source decodes audio files into interleaved float32 PCM.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Source is a decoded PCM stream.
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels count, 1 for mono and 2 for stereo.
	Channels() int
	// ReadSamples fills dst with interleaved samples in [-1,1] and returns the
	// number of values written. It returns 0, io.EOF once the stream ends.
	ReadSamples(dst []float32) (int, error)
	Close() error
}

// Decoder builds a Source from an open file.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(r io.ReadSeeker) (Source, error)

// Decode calls f.
func (f DecoderFunc) Decode(r io.ReadSeeker) (Source, error) { return f(r) }

// Registry maps file extensions to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry returns a Registry with the WAV, MP3 and Ogg Vorbis decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("wav", DecoderFunc(decodeWAV))
	r.Register("mp3", DecoderFunc(decodeMP3))
	r.Register("ogg", DecoderFunc(decodeOgg))
	r.Register("oga", DecoderFunc(decodeOgg))
	return r
}

// Register associates an extension (without dot) with a decoder.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(format)] = d
}

// Get returns the decoder for an extension.
func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[strings.ToLower(format)]
	return d, ok
}

// Formats lists the registered extensions.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open decodes path with the decoder registered for its extension. Closing
// the returned Source closes the file.
func (r *Registry) Open(path string) (Source, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	dec, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, ErrUnknownFormat)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fileSource{Source: src, file: f}, nil
}

// Open decodes path using the default registry.
func Open(path string) (Source, error) {
	return DefaultRegistry().Open(path)
}

type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
