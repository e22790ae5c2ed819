package source

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 44_100, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 44_100},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestOpenWAVDecodesStereo16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 16, 2, []int{16384, -16384, 0, 32767, -32768, 8192})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 44_100 || src.Channels() != 2 {
		t.Fatalf("unexpected format %d Hz %d ch", src.SampleRate(), src.Channels())
	}
	dst := make([]float32, 16)
	n, err := src.ReadSamples(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []float32{0.5, -0.5, 0, 32767.0 / 32768, -1, 0.25}
	if n != len(want) {
		t.Fatalf("read %d samples want %d", n, len(want))
	}
	for i, w := range want {
		if math.Abs(float64(dst[i]-w)) > 1e-6 {
			t.Fatalf("sample %d=%f want %f", i, dst[i], w)
		}
	}
	if n, err := src.ReadSamples(dst); n != 0 || !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got n=%d err=%v", n, err)
	}
}

func TestOpenWAVDecodes24Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep.wav")
	writeWAV(t, path, 24, 1, []int{1 << 22, -(1 << 22)})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()
	dst := make([]float32, 4)
	n, _ := src.ReadSamples(dst)
	if n != 2 || math.Abs(float64(dst[0])-0.5) > 1e-6 || math.Abs(float64(dst[1])+0.5) > 1e-6 {
		t.Fatalf("unexpected 24-bit samples n=%d %v", n, dst[:n])
	}
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	if _, err := Open("track.flac"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestOpenRejectsInvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data, just text bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestRegistryFormats(t *testing.T) {
	r := DefaultRegistry()
	got := r.Formats()
	want := []string{"mp3", "oga", "ogg", "wav"}
	if len(got) != len(want) {
		t.Fatalf("formats=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("formats=%v want=%v", got, want)
		}
	}
	if _, ok := r.Get("WAV"); !ok {
		t.Fatalf("lookup should be case-insensitive")
	}
}

func TestWindowKeepsNewestFrames(t *testing.T) {
	w, err := NewWindow(3, 2)
	if err != nil {
		t.Fatalf("new window: %v", err)
	}
	w.Push([]float32{1, 1, 2, 2})
	w.Push([]float32{3, 3, 4, 4, 9})
	got := w.Snapshot()
	want := []float32{2, 2, 3, 3, 4, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window=%v want=%v", got, want)
		}
	}
	w.Push([]float32{5, 5, 6, 6, 7, 7, 8, 8})
	if got := w.Samples(); got[0] != 6 || got[5] != 8 {
		t.Fatalf("window=%v", got)
	}
	if _, err := NewWindow(0, 2); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

type sliceSource struct {
	data     []float32
	channels int
}

func (s *sliceSource) SampleRate() int { return 44_100 }
func (s *sliceSource) Channels() int   { return s.channels }
func (s *sliceSource) Close() error    { return nil }

func (s *sliceSource) ReadSamples(dst []float32) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := copy(dst, s.data)
	s.data = s.data[n:]
	return n, nil
}

func TestWindowFillUntilEOF(t *testing.T) {
	src := &sliceSource{data: []float32{1, 2, 3, 4, 5}, channels: 1}
	w, _ := NewWindow(4, 1)
	if n, err := w.Fill(src, 3); n != 3 || err != nil {
		t.Fatalf("fill n=%d err=%v", n, err)
	}
	if n, err := w.Fill(src, 3); n != 2 || err != nil {
		t.Fatalf("partial fill n=%d err=%v", n, err)
	}
	if got := w.Samples(); got[0] != 2 || got[3] != 5 {
		t.Fatalf("window=%v", got)
	}
	if _, err := w.Fill(src, 3); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
