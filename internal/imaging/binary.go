package imaging

import (
	"fmt"
	"image"
	"strings"
)

// Grid cell values.
const (
	Ink        uint8 = 0
	Background uint8 = 1
)

// Grid is a two-level image: every cell is Ink or Background. Cells are
// stored row-major. A Grid is never modified after construction; Crop and
// ResizeNearest return new grids.
type Grid struct {
	rows  int
	cols  int
	cells []uint8
}

// NewGrid creates a grid from row-major cell values. The slice is copied.
// Every value must be Ink or Background.
func NewGrid(rows, cols int, cells []uint8) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid shape %dx%d", rows, cols)
	}
	if len(cells) != rows*cols {
		return nil, fmt.Errorf("grid %dx%d needs %d cells, got %d", rows, cols, rows*cols, len(cells))
	}
	for i, v := range cells {
		if v != Ink && v != Background {
			return nil, fmt.Errorf("cell (%d,%d) has value %d, want 0 or 1", i/cols, i%cols, v)
		}
	}
	c := make([]uint8, len(cells))
	copy(c, cells)
	return &Grid{rows: rows, cols: cols, cells: c}, nil
}

// ParseGrid builds a grid from one string per row made of '0' and '1'
// characters, e.g. []string{"0110", "1001"}.
func ParseGrid(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid has no rows")
	}
	cols := len(rows[0])
	cells := make([]uint8, 0, len(rows)*cols)
	for r, line := range rows {
		if len(line) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", r, len(line), cols)
		}
		for c := 0; c < len(line); c++ {
			switch line[c] {
			case '0':
				cells = append(cells, Ink)
			case '1':
				cells = append(cells, Background)
			default:
				return nil, fmt.Errorf("row %d, column %d: invalid value %q", r, c, line[c])
			}
		}
	}
	return NewGrid(len(rows), cols, cells)
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// At returns the cell at (row, col).
func (g *Grid) At(row, col int) uint8 {
	return g.cells[row*g.cols+col]
}

// Flatten returns the cells in row-major order as float64 values, the form
// the similarity statistics work on.
func (g *Grid) Flatten() []float64 {
	out := make([]float64, len(g.cells))
	for i, v := range g.cells {
		out[i] = float64(v)
	}
	return out
}

// Equal reports whether two grids have the same shape and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.rows != o.rows || g.cols != o.cols {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Crop returns the sub-grid spanning rows r0..r1 and columns c0..c1, both
// ranges inclusive.
func (g *Grid) Crop(r0, r1, c0, c1 int) (*Grid, error) {
	if r0 < 0 || c0 < 0 || r1 >= g.rows || c1 >= g.cols {
		return nil, fmt.Errorf("crop rows %d-%d, columns %d-%d outside grid %dx%d",
			r0, r1, c0, c1, g.rows, g.cols)
	}
	if r0 > r1 || c0 > c1 {
		return nil, fmt.Errorf("invalid crop region: rows %d-%d, columns %d-%d", r0, r1, c0, c1)
	}

	rows, cols := r1-r0+1, c1-c0+1
	cells := make([]uint8, 0, rows*cols)
	for r := r0; r <= r1; r++ {
		cells = append(cells, g.cells[r*g.cols+c0:r*g.cols+c1+1]...)
	}
	return &Grid{rows: rows, cols: cols, cells: cells}, nil
}

// ResizeNearest resamples the grid to rows x cols with nearest-neighbor
// interpolation.
//
// Output cell (r, c) takes source cell (floor(r*srcRows/rows),
// floor(c*srcCols/cols)), clamped to the last source index. This is the
// mapping of OpenCV's INTER_NEAREST, which templates are built with, so the
// output matches it cell for cell.
func (g *Grid) ResizeNearest(rows, cols int) *Grid {
	cells := make([]uint8, rows*cols)
	for r := 0; r < rows; r++ {
		sr := nearestIndex(r, g.rows, rows)
		for c := 0; c < cols; c++ {
			cells[r*cols+c] = g.cells[sr*g.cols+nearestIndex(c, g.cols, cols)]
		}
	}
	return &Grid{rows: rows, cols: cols, cells: cells}
}

func nearestIndex(dst, srcLen, dstLen int) int {
	i := dst * srcLen / dstLen
	if i > srcLen-1 {
		i = srcLen - 1
	}
	return i
}

// String renders the grid as rows of '0' and '1' separated by newlines.
func (g *Grid) String() string {
	return strings.Join(g.RowStrings(), "\n")
}

// RowStrings renders each row as a string of '0' and '1' characters, the
// inverse of ParseGrid.
func (g *Grid) RowStrings() []string {
	out := make([]string, g.rows)
	buf := make([]byte, g.cols)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			buf[c] = '0' + g.cells[r*g.cols+c]
		}
		out[r] = string(buf)
	}
	return out
}

// ToImage renders the grid as a grayscale image with ink black and
// background white.
func (g *Grid) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.cols, g.rows))
	for i, v := range g.cells {
		if v == Background {
			img.Pix[i] = 0xff
		}
	}
	return img
}
