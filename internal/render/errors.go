package render

import "errors"

var (
	// ErrRendererQuit is returned by Frame.Present when the window was closed.
	ErrRendererQuit = errors.New("renderer closed")
	// ErrSDLUnavailable is returned when the binary was built without the sdl tag.
	ErrSDLUnavailable = errors.New("SDL backend not enabled; rebuild with -tags sdl")
	// ErrInvalidDimensions is returned for non-positive render sizes.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)
