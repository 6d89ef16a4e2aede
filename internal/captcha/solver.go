// Package captcha runs the recognition pipeline: binarize the raster, find
// the glyphs by projection, normalize each glyph to the canonical shape and
// classify it against the template bank.
//
// A Solver holds only its configuration and an immutable bank, so one
// Solver serves any number of concurrent Recognize calls.
package captcha

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/ironsheep/captcha-solver/internal/bank"
	"github.com/ironsheep/captcha-solver/internal/config"
	"github.com/ironsheep/captcha-solver/internal/detection"
	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
	"github.com/ironsheep/captcha-solver/internal/logging"
	"github.com/ironsheep/captcha-solver/internal/matcher"
)

// dumpScale is the upscale factor of debug glyph images.
const dumpScale = 8

// Solver recognizes captchas of one fixed family.
type Solver struct {
	bank       *bank.Bank
	threshold  int
	glyphRows  int
	glyphCols  int
	glyphCount int
	debugDir   string
	logger     *slog.Logger
}

// New creates a solver. The bank must use the glyph shape cfg declares. A
// nil logger discards logs.
func New(cfg *config.Config, b *bank.Bank, logger *slog.Logger) (*Solver, error) {
	if b == nil {
		return nil, cerrors.NewModelLoadError(cfg.BankPath, "no template bank", nil)
	}
	if b.Rows() != cfg.GlyphRows || b.Cols() != cfg.GlyphCols {
		return nil, cerrors.NewModelLoadError(b.Source(),
			fmt.Sprintf("bank glyphs are %dx%d, solver needs %dx%d",
				b.Rows(), b.Cols(), cfg.GlyphRows, cfg.GlyphCols), nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Solver{
		bank:       b,
		threshold:  cfg.Threshold,
		glyphRows:  cfg.GlyphRows,
		glyphCols:  cfg.GlyphCols,
		glyphCount: cfg.GlyphCount,
		debugDir:   cfg.DebugDir,
		logger:     logger,
	}, nil
}

// Bank returns the solver's template bank.
func (s *Solver) Bank() *bank.Bank { return s.bank }

// Normalize crops g to the inclusive rectangle given by row and col and
// brings it to rows x cols. A crop that already has that shape is returned
// unchanged; any other is resampled with nearest-neighbor interpolation.
func Normalize(g *imaging.Grid, row, col detection.Run, rows, cols int) (*imaging.Grid, error) {
	crop, err := g.Crop(row.Start, row.End, col.Start, col.End)
	if err != nil {
		return nil, fmt.Errorf("failed to crop glyph: %w", err)
	}
	if crop.Rows() == rows && crop.Cols() == cols {
		return crop, nil
	}
	return crop.ResizeNearest(rows, cols), nil
}

// Layout is the segmentation of one raster.
type Layout struct {
	Grid         *imaging.Grid
	Segmentation *detection.Segmentation
	Glyphs       []*imaging.Grid
}

// Boxes returns the glyph rectangles in raster coordinates.
func (l *Layout) Boxes() []image.Rectangle { return l.Segmentation.Glyphs() }

// Segment binarizes r, locates the glyphs and normalizes each one.
func (s *Solver) Segment(r *imaging.Raster) (*Layout, error) {
	grid := imaging.Binarize(r, s.threshold)

	seg, err := detection.Segment(grid, s.glyphCount)
	if err != nil {
		return nil, err
	}

	glyphs := make([]*imaging.Grid, len(seg.Columns))
	for i, col := range seg.Columns {
		g, err := Normalize(grid, seg.Row, col, s.glyphRows, s.glyphCols)
		if err != nil {
			return nil, err
		}
		glyphs[i] = g
	}

	return &Layout{Grid: grid, Segmentation: seg, Glyphs: glyphs}, nil
}

// Recognize returns the answer encoded in r: one label per glyph, left to
// right, with no separators. It either classifies every glyph or fails.
func (s *Solver) Recognize(r *imaging.Raster) (string, error) {
	report, err := s.Explain(r)
	if err != nil {
		return "", err
	}
	return report.Answer, nil
}

// GlyphReport describes how one glyph was classified. Scores are nil where
// the correlation is undefined.
type GlyphReport struct {
	Index         int      `json:"index"`
	Columns       [2]int   `json:"columns"`
	Label         string   `json:"label"`
	Score         *float64 `json:"score"`
	RunnerUp      string   `json:"runner_up,omitempty"`
	RunnerUpScore *float64 `json:"runner_up_score,omitempty"`
}

// Report is a recognized answer with per-glyph detail.
type Report struct {
	Answer string        `json:"answer"`
	Rows   [2]int        `json:"rows"`
	Glyphs []GlyphReport `json:"glyphs"`

	// Runs found beyond the first band and the expected glyph count.
	IgnoredRowRuns    int `json:"ignored_row_runs"`
	IgnoredColumnRuns int `json:"ignored_column_runs"`

	Layout *Layout           `json:"-"`
	Scores [][]matcher.Score `json:"-"`
}

// Explain recognizes r and reports the winning and runner-up template of
// every glyph.
func (s *Solver) Explain(r *imaging.Raster) (*Report, error) {
	layout, err := s.Segment(r)
	if err != nil {
		s.logger.Debug("segmentation failed", "error", err)
		return nil, err
	}
	seg := layout.Segmentation

	report := &Report{
		Rows:              [2]int{seg.Row.Start, seg.Row.End},
		Glyphs:            make([]GlyphReport, len(layout.Glyphs)),
		IgnoredRowRuns:    seg.RowRuns - 1,
		IgnoredColumnRuns: seg.ColumnRuns - len(seg.Columns),
		Layout:            layout,
		Scores:            make([][]matcher.Score, len(layout.Glyphs)),
	}

	answer := make([]byte, 0, len(layout.Glyphs))
	for i, g := range layout.Glyphs {
		scores := matcher.Scores(g, s.bank)
		best := matcher.Best(scores)

		gr := GlyphReport{
			Index:   i,
			Columns: [2]int{seg.Columns[i].Start, seg.Columns[i].End},
			Label:   best.Label,
			Score:   finite(best.Value),
		}
		if ru, ok := matcher.RunnerUp(scores, best.Label); ok {
			gr.RunnerUp = ru.Label
			gr.RunnerUpScore = finite(ru.Value)
		}

		s.logger.Debug("glyph classified",
			"index", i,
			"columns", gr.Columns,
			"label", best.Label,
			"score", best.Value,
			"runner_up", gr.RunnerUp)

		report.Glyphs[i] = gr
		report.Scores[i] = scores
		answer = append(answer, best.Label...)
	}
	report.Answer = string(answer)

	if s.debugDir != "" {
		dir, err := imaging.DumpGlyphs(s.debugDir, layout.Grid, layout.Glyphs, dumpScale)
		if err != nil {
			s.logger.Warn("failed to dump glyphs", "error", err)
		} else {
			s.logger.Debug("glyphs dumped", "dir", dir)
		}
	}

	return report, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// SolveFile loads the raster at in, recognizes it and writes the answer to
// out ("-" for stdout). Nothing is written unless recognition succeeds.
func (s *Solver) SolveFile(ctx context.Context, in, out string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, err := imaging.LoadRaster(in)
	if err != nil {
		return "", err
	}
	s.logger.Debug("raster loaded", "path", in, "width", r.Width(), "height", r.Height())

	if err := ctx.Err(); err != nil {
		return "", err
	}

	answer, err := s.Recognize(r)
	if err != nil {
		return "", err
	}

	if err := WriteAnswer(out, answer); err != nil {
		return "", err
	}
	s.logger.Info("captcha solved", "input", in, "output", out, "answer", answer)
	return answer, nil
}

// WriteAnswer writes answer verbatim, without a trailing newline. "-" means
// stdout. Files are written to a temporary name and renamed into place, so a
// failed write never leaves a partial answer behind.
func WriteAnswer(path, answer string) error {
	if path == "-" {
		_, err := os.Stdout.WriteString(answer)
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".answer-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := tmp.WriteString(answer); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write answer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write answer: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write answer: %w", err)
	}
	return nil
}
