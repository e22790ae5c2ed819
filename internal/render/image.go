package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/guidoenr/ripplefield/internal/compose"
	"github.com/guidoenr/ripplefield/internal/ripple"
)

// RenderImage composites st into a width x height RGBA image.
func RenderImage(st *compose.State, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("width=%d height=%d: %w", width, height, ErrInvalidDimensions)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	xs := fieldCoords(width, -1, 1)
	ys := fieldCoords(height, 0, 1)
	forEachRow(height, func(y int) {
		for x := 0; x < width; x++ {
			s := compose.Sample{Pos: ripple.Point{X: xs[x], Y: ys[y]}, PixelX: x, PixelY: y}
			r, g, b := compose.Compose(s, st.Time, st).RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	})
	return img, nil
}

// WritePNG renders st and writes it to path.
func WritePNG(path string, st *compose.State, width, height int) error {
	img, err := RenderImage(st, width, height)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}
