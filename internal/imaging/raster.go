package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// MaxScale bounds the upscale factor of rendered debug images.
const MaxScale = 32

// clampScale maps scale into [1, MaxScale].
func clampScale(scale int) int {
	if scale < 1 {
		return 1
	}
	if scale > MaxScale {
		return MaxScale
	}
	return scale
}

// Raster is an RGB image with 8-bit channels, stored row-major with three
// bytes per pixel. A Raster is never modified after construction.
type Raster struct {
	width  int
	height int
	pix    []uint8
}

// NewRaster creates a raster from row-major RGB bytes. The slice is copied.
func NewRaster(width, height int, rgb []uint8) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	if len(rgb) != width*height*3 {
		return nil, fmt.Errorf("raster %dx%d needs %d bytes, got %d", width, height, width*height*3, len(rgb))
	}
	pix := make([]uint8, len(rgb))
	copy(pix, rgb)
	return &Raster{width: width, height: height, pix: pix}, nil
}

// FromImage converts a decoded image into a Raster.
//
// The image is normalized to non-premultiplied RGBA first, so the resulting
// channel order is always R, G, B regardless of the source color model
// (YCbCr JPEGs, paletted GIFs, grayscale PNGs). Alpha is dropped.
func FromImage(img image.Image) *Raster {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()

	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		dst := pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}

	return &Raster{width: w, height: h, pix: pix}
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.height }

// At returns the RGB channels of the pixel at (row, col).
func (r *Raster) At(row, col int) (uint8, uint8, uint8) {
	i := (row*r.width + col) * 3
	return r.pix[i], r.pix[i+1], r.pix[i+2]
}

// ToImage renders the raster as an opaque NRGBA image.
func (r *Raster) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))
	for i := 0; i < r.width*r.height; i++ {
		img.Pix[i*4] = r.pix[i*3]
		img.Pix[i*4+1] = r.pix[i*3+1]
		img.Pix[i*4+2] = r.pix[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img
}
