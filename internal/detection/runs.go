package detection

import (
	"image"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// Run is a maximal range of ink-bearing indices along one axis. Both ends
// are inclusive.
type Run struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices the run spans.
func (r Run) Len() int { return r.End - r.Start + 1 }

// ZeroRuns returns the maximal runs of zero values in v, in increasing order.
//
// A vector without zeros yields no runs; an all-zero vector yields a single
// run spanning it.
func ZeroRuns(v []uint8) []Run {
	runs := make([]Run, 0)
	start := -1
	for i, x := range v {
		switch {
		case x == 0 && start < 0:
			start = i
		case x != 0 && start >= 0:
			runs = append(runs, Run{Start: start, End: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, End: len(v) - 1})
	}
	return runs
}

// ColumnProjection returns the minimum of every column: 0 where the column
// holds any ink.
func ColumnProjection(g *imaging.Grid) []uint8 {
	out := make([]uint8, g.Cols())
	for c := range out {
		out[c] = imaging.Background
		for r := 0; r < g.Rows(); r++ {
			if g.At(r, c) == imaging.Ink {
				out[c] = imaging.Ink
				break
			}
		}
	}
	return out
}

// RowProjection returns the minimum of every row: 0 where the row holds any
// ink.
func RowProjection(g *imaging.Grid) []uint8 {
	out := make([]uint8, g.Rows())
	for r := range out {
		out[r] = imaging.Background
		for c := 0; c < g.Cols(); c++ {
			if g.At(r, c) == imaging.Ink {
				out[r] = imaging.Ink
				break
			}
		}
	}
	return out
}

// Segmentation is the glyph layout found in a grid.
type Segmentation struct {
	// Row is the text band: the first row run.
	Row Run `json:"row"`

	// Columns holds one run per glyph, left to right.
	Columns []Run `json:"columns"`

	// RowRuns and ColumnRuns count every run found, including ignored ones.
	RowRuns    int `json:"row_runs"`
	ColumnRuns int `json:"column_runs"`
}

// Segment finds the text band and the first glyphs column runs of g.
//
// Only the first row run is used; further bands are ignored. Column runs
// past the first glyphs are ignored too. Fewer than one row run or fewer
// than glyphs column runs is a SEGMENTATION error.
func Segment(g *imaging.Grid, glyphs int) (*Segmentation, error) {
	rowRuns := ZeroRuns(RowProjection(g))
	colRuns := ZeroRuns(ColumnProjection(g))

	if len(rowRuns) < 1 || len(colRuns) < glyphs {
		return nil, cerrors.NewSegmentationError(len(rowRuns), len(colRuns), glyphs)
	}

	return &Segmentation{
		Row:        rowRuns[0],
		Columns:    colRuns[:glyphs:glyphs],
		RowRuns:    len(rowRuns),
		ColumnRuns: len(colRuns),
	}, nil
}

// Band returns the text band as a rectangle spanning the full grid width.
func (s *Segmentation) Band(width int) image.Rectangle {
	return image.Rect(0, s.Row.Start, width, s.Row.End+1)
}

// Glyphs returns one rectangle per glyph, bounded by the band rows and the
// glyph's column run.
func (s *Segmentation) Glyphs() []image.Rectangle {
	out := make([]image.Rectangle, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = image.Rect(c.Start, s.Row.Start, c.End+1, s.Row.End+1)
	}
	return out
}
