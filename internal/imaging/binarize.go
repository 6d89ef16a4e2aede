package imaging

// Fixed-point BT.601 luma weights, scaled by 1<<14. These are the integer
// weights used by OpenCV's 8-bit RGB to gray conversion, so gray values match
// it exactly rather than approximately.
const (
	grayShift = 14
	grayR     = 4899 // 0.299
	grayG     = 9617 // 0.587
	grayB     = 1868 // 0.114
	grayRound = 1 << (grayShift - 1)
)

// Gray converts one RGB pixel to its 8-bit luma value.
func Gray(r, g, b uint8) uint8 {
	return uint8((uint32(r)*grayR + uint32(g)*grayG + uint32(b)*grayB + grayRound) >> grayShift)
}

// Binarize converts a raster into a two-level grid.
//
// Pixels whose gray value is strictly greater than threshold become
// background (1); all others become ink (0). The result has the raster's
// height as rows and width as columns.
func Binarize(r *Raster, threshold int) *Grid {
	rows, cols := r.Height(), r.Width()
	cells := make([]uint8, rows*cols)

	for i := range cells {
		p := r.pix[i*3 : i*3+3]
		if int(Gray(p[0], p[1], p[2])) > threshold {
			cells[i] = Background
		} else {
			cells[i] = Ink
		}
	}

	return &Grid{rows: rows, cols: cols, cells: cells}
}
