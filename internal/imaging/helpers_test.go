package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates an image filled with a solid color
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// rasterFromRows builds a black and white raster from '0' (black) / '1'
// (white) rows.
func rasterFromRows(t *testing.T, rows ...string) *Raster {
	t.Helper()
	w, h := len(rows[0]), len(rows)
	rgb := make([]uint8, 0, w*h*3)
	for _, row := range rows {
		for i := 0; i < len(row); i++ {
			v := uint8(0)
			if row[i] == '1' {
				v = 255
			}
			rgb = append(rgb, v, v, v)
		}
	}
	r, err := NewRaster(w, h, rgb)
	if err != nil {
		t.Fatalf("NewRaster failed: %v", err)
	}
	return r
}

func mustParseGrid(t *testing.T, rows ...string) *Grid {
	t.Helper()
	g, err := ParseGrid(rows)
	if err != nil {
		t.Fatalf("ParseGrid failed: %v", err)
	}
	return g
}
