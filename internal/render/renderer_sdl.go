//go:build sdl

package render

import (
	"fmt"

	"github.com/guidoenr/ripplefield/internal/compose"
	"github.com/veandco/go-sdl2/sdl"
)

type sdlState struct {
	initialized bool
	window      *sdl.Window
	renderer    *sdl.Renderer
	texture     *sdl.Texture
	pixelBuffer []byte
	width       int
	height      int
	pitch       int
	windowTitle string
}

func (r *Renderer) initSDL(width, height int) error {
	if r.sdl != nil {
		r.mode = backendSDL
		return nil
	}
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("sdl init: %w", err)
	}
	r.sdl = &sdlState{initialized: true}
	r.mode = backendSDL
	r.useANSI = false
	r.log.WithField("size", fmt.Sprintf("%dx%d", width, height)).Info("SDL backend enabled")
	return nil
}

func (r *Renderer) ensureSDLResources() error {
	if r.sdl == nil {
		return ErrSDLUnavailable
	}
	state := r.sdl
	if state.window == nil {
		window, err := sdl.CreateWindow(
			"ripplefield",
			sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
			int32(r.width), int32(r.height),
			sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
		)
		if err != nil {
			return fmt.Errorf("create window: %w", err)
		}
		state.window = window
	}
	if state.renderer == nil {
		renderer, err := sdl.CreateRenderer(state.window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		state.renderer = renderer
	}
	if state.texture == nil || state.width != r.width || state.height != r.height {
		if state.texture != nil {
			state.texture.Destroy()
			state.texture = nil
		}
		_ = state.renderer.SetLogicalSize(int32(r.width), int32(r.height))
		tex, err := state.renderer.CreateTexture(
			sdl.PIXELFORMAT_ABGR8888,
			sdl.TEXTUREACCESS_STREAMING,
			int32(r.width), int32(r.height),
		)
		if err != nil {
			return fmt.Errorf("create texture: %w", err)
		}
		state.texture = tex
		state.width = r.width
		state.height = r.height
		state.pitch = r.width * 4
		state.pixelBuffer = make([]byte, state.pitch*r.height)
	}
	return nil
}

func (r *Renderer) renderSDL(st *compose.State, fps float64) Frame {
	if err := r.ensureSDLResources(); err != nil {
		return Frame{
			Status: fmt.Sprintf("SDL init error: %v", err),
			Present: func(string) error {
				return err
			},
		}
	}
	state := r.sdl
	width := r.width
	pitch := state.pitch

	forEachRow(r.height, func(y int) {
		rowOffset := y * pitch
		for x := 0; x < width; x++ {
			cr, cg, cb := compose.Compose(r.sample(x, y), st.Time, st).RGB255()
			offset := rowOffset + x*4
			state.pixelBuffer[offset+0] = cr
			state.pixelBuffer[offset+1] = cg
			state.pixelBuffer[offset+2] = cb
			state.pixelBuffer[offset+3] = 255
		}
	})

	return Frame{
		Status: r.buildStatus(st, fps),
		Present: func(status string) error {
			if status != "" && status != state.windowTitle && state.window != nil {
				state.window.SetTitle(status)
				state.windowTitle = status
			}
			if err := state.texture.Update(nil, state.pixelBuffer, state.pitch); err != nil {
				return fmt.Errorf("update texture: %w", err)
			}
			if err := state.renderer.Clear(); err != nil {
				return err
			}
			if err := state.renderer.Copy(state.texture, nil, nil); err != nil {
				return err
			}
			state.renderer.Present()
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch e := event.(type) {
				case *sdl.QuitEvent:
					return ErrRendererQuit
				case *sdl.KeyboardEvent:
					if e.Type == sdl.KEYDOWN && (e.Keysym.Sym == sdl.K_ESCAPE || e.Keysym.Sym == sdl.K_q) {
						return ErrRendererQuit
					}
				}
			}
			return nil
		},
	}
}

func (r *Renderer) resizeSDL() {
	if r.sdl == nil {
		return
	}
	r.sdl.width = 0
	r.sdl.height = 0
}

func (r *Renderer) closeSDL() error {
	if r.sdl == nil {
		return nil
	}
	if r.sdl.texture != nil {
		r.sdl.texture.Destroy()
		r.sdl.texture = nil
	}
	if r.sdl.renderer != nil {
		r.sdl.renderer.Destroy()
		r.sdl.renderer = nil
	}
	if r.sdl.window != nil {
		r.sdl.window.Destroy()
		r.sdl.window = nil
	}
	r.sdl.pixelBuffer = nil
	if r.sdl.initialized {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		r.sdl.initialized = false
	}
	r.sdl = nil
	return nil
}

// SupportsSDL reports whether the windowed backend was compiled in.
func SupportsSDL() bool { return true }
