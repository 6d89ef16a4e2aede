package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// OverlayResult contains a raster with segmentation boxes drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Scale       int    `json:"scale"`
	Boxes       int    `json:"boxes"`
}

var bandColor = color.NRGBA{128, 128, 128, 255}

// GlyphColors returns n visually distinct opaque colors, evenly spaced in hue.
func GlyphColors(n int) []color.NRGBA {
	colors := make([]color.NRGBA, n)
	for i := range colors {
		c := colorful.Hsv(float64(i)*360/float64(n), 0.9, 0.9)
		r, g, b := c.RGB255()
		colors[i] = color.NRGBA{r, g, b, 255}
	}
	return colors
}

// Overlay draws the segmentation of a raster: the row band outlined in gray
// and every glyph box outlined in its own color.
//
// Rectangles use raster pixel coordinates with exclusive Max. The raster is
// upscaled by scale (nearest neighbor, so pixels stay crisp) before drawing,
// keeping outlines one pixel wide on small captchas. The scale is
// clamped to [1, MaxScale].
func Overlay(r *Raster, band image.Rectangle, glyphs []image.Rectangle, scale int) (*OverlayResult, error) {
	scale = clampScale(scale)

	var canvas *image.NRGBA
	if scale == 1 {
		canvas = r.ToImage()
	} else {
		canvas = imaging.Resize(r.ToImage(), r.Width()*scale, r.Height()*scale, imaging.NearestNeighbor)
	}

	if !band.Empty() {
		drawOutline(canvas, scaleRect(band, scale), bandColor)
	}
	for i, c := range GlyphColors(len(glyphs)) {
		drawOutline(canvas, scaleRect(glyphs[i], scale), c)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       canvas.Bounds().Dx(),
		Height:      canvas.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Scale:       scale,
		Boxes:       len(glyphs),
	}, nil
}

func scaleRect(r image.Rectangle, scale int) image.Rectangle {
	return image.Rect(r.Min.X*scale, r.Min.Y*scale, r.Max.X*scale, r.Max.Y*scale)
}

// drawOutline draws the one-pixel border of rect, clipped to the image.
func drawOutline(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.SetNRGBA(x, rect.Min.Y, c)
		img.SetNRGBA(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.SetNRGBA(rect.Min.X, y, c)
		img.SetNRGBA(rect.Max.X-1, y, c)
	}
}
