package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts rect (Max exclusive) from a raster as a PNG, upscaled by
// scale with nearest-neighbor sampling so single pixels stay visible. The scale
// is clamped to [1, MaxScale].
func Crop(r *Raster, rect image.Rectangle, scale int) (*CropResult, error) {
	bounds := image.Rect(0, 0, r.Width(), r.Height())

	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside raster bounds %v", rect, bounds)
	}
	if rect.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: empty", rect)
	}
	scale = clampScale(scale)

	cropped := imaging.Crop(r.ToImage(), rect)
	if scale > 1 {
		cropped = imaging.Resize(cropped, rect.Dx()*scale, rect.Dy()*scale, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           rect.Min.X,
		Y:           rect.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
