package source

import "errors"

var (
	// ErrUnknownFormat is returned for file extensions without a decoder.
	ErrUnknownFormat = errors.New("unknown audio format")
	// ErrNotWAV is returned when a .wav file lacks a valid RIFF/WAVE header.
	ErrNotWAV = errors.New("not a valid wav file")
	// ErrUnsupportedBitDepth is returned for PCM bit depths other than 8, 16, 24 and 32.
	ErrUnsupportedBitDepth = errors.New("unsupported wav bit depth")
	// ErrInvalidWindow is returned for non-positive window sizes or channel counts.
	ErrInvalidWindow = errors.New("window size and channels must be positive")
)
