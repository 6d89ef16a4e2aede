package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DumpGlyphs writes debug images for one recognition run.
//
// A fresh directory named by a random UUID is created under dir. It receives
// "binary.png" (the whole binarized captcha, when full is non-nil) and
// "glyph-<i>.png" for every normalized glyph, all upscaled by scale
// (clamped to [1, MaxScale]) with nearest-neighbor sampling. Returns the run directory.
func DumpGlyphs(dir string, full *Grid, glyphs []*Grid, scale int) (string, error) {
	scale = clampScale(scale)

	runDir := filepath.Join(dir, uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}

	if full != nil {
		if err := saveGrid(filepath.Join(runDir, "binary.png"), full, scale); err != nil {
			return "", err
		}
	}
	for i, g := range glyphs {
		if err := saveGrid(filepath.Join(runDir, fmt.Sprintf("glyph-%d.png", i)), g, scale); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func saveGrid(path string, g *Grid, scale int) error {
	var img image.Image = g.ToImage()
	if scale > 1 {
		img = imaging.Resize(img, g.Cols()*scale, g.Rows()*scale, imaging.NearestNeighbor)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}
