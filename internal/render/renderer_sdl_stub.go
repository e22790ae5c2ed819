//go:build !sdl

package render

import "github.com/guidoenr/ripplefield/internal/compose"

type sdlState struct{}

func (r *Renderer) initSDL(width, height int) error {
	return ErrSDLUnavailable
}

func (r *Renderer) renderSDL(st *compose.State, fps float64) Frame {
	return Frame{
		Status: "SDL backend unavailable (build with -tags sdl)",
		Present: func(string) error {
			return ErrRendererQuit
		},
	}
}

func (r *Renderer) resizeSDL() {}

func (r *Renderer) closeSDL() error { return nil }

// SupportsSDL reports whether the windowed backend was compiled in.
func SupportsSDL() bool { return false }
