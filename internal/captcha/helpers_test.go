package captcha

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/captcha-solver/internal/bank"
	"github.com/ironsheep/captcha-solver/internal/config"
	"github.com/ironsheep/captcha-solver/internal/detection"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

var scenarioRuns = []detection.Run{{Start: 0, End: 7}, {Start: 9, End: 15}, {Start: 17, End: 23}, {Start: 25, End: 31}, {Start: 33, End: 39}}

// glyphRows draws a 10-row glyph of the given width. Both edge columns are
// solid so the glyph forms one column run, and seed varies the interior.
func glyphRows(width, seed int) []string {
	rows := make([]string, 10)
	for r := range rows {
		b := []byte(strings.Repeat("1", width))
		for c := 0; c < width; c++ {
			if c == 0 || c == width-1 || (r+c*(seed+1))%(seed+3) == 0 {
				b[c] = '0'
			}
		}
		rows[r] = string(b)
	}
	return rows
}

// scenarioGrid lays out five glyphs on a 10x40 background following
// scenarioRuns, with one background column between glyphs.
func scenarioGrid(t *testing.T) (*imaging.Grid, [][]string) {
	t.Helper()
	lines := make([][]byte, 10)
	for r := range lines {
		lines[r] = []byte(strings.Repeat("1", 40))
	}
	glyphs := make([][]string, len(scenarioRuns))
	for i, run := range scenarioRuns {
		glyphs[i] = glyphRows(run.Len(), i)
		for r, row := range glyphs[i] {
			copy(lines[r][run.Start:], row)
		}
	}

	rows := make([]string, len(lines))
	for r, l := range lines {
		rows[r] = string(l)
	}
	g, err := imaging.ParseGrid(rows)
	require.NoError(t, err)
	return g, glyphs
}

// rasterOf renders a grid as a black and white raster.
func rasterOf(t *testing.T, g *imaging.Grid) *imaging.Raster {
	t.Helper()
	rgb := make([]uint8, 0, g.Rows()*g.Cols()*3)
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			v := uint8(20)
			if g.At(r, c) == imaging.Background {
				v = 235
			}
			rgb = append(rgb, v, v, v)
		}
	}
	raster, err := imaging.NewRaster(g.Cols(), g.Rows(), rgb)
	require.NoError(t, err)
	return raster
}

// writeTextRaster writes r in the textual raster format.
func writeTextRaster(t *testing.T, path string, r *imaging.Raster) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d\n", r.Height(), r.Width())
	for y := 0; y < r.Height(); y++ {
		cells := make([]string, r.Width())
		for x := 0; x < r.Width(); x++ {
			red, green, blue := r.At(y, x)
			cells[x] = fmt.Sprintf("%d,%d,%d", red, green, blue)
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

// scenarioBank returns a bank whose templates are the normalized scenario
// glyphs labeled A-E, preceded by an unrelated decoy template.
func scenarioBank(t *testing.T) *bank.Bank {
	t.Helper()
	g, _ := scenarioGrid(t)

	decoy, err := imaging.ParseGrid(glyphRows(8, 7))
	require.NoError(t, err)
	templates := []bank.Template{{Label: "z", Glyph: decoy}}

	for i, run := range scenarioRuns {
		glyph, err := Normalize(g, detection.Run{Start: 0, End: 9}, run, 10, 8)
		require.NoError(t, err)
		templates = append(templates, bank.Template{Label: string(rune('A' + i)), Glyph: glyph})
	}

	b, err := bank.New("scenario", 10, 8, templates)
	require.NoError(t, err)
	return b
}

func newTestSolver(t *testing.T, cfg *config.Config) *Solver {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	s, err := New(cfg, scenarioBank(t), nil)
	require.NoError(t, err)
	return s
}

func tempPath(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}

func saveRasterPNG(path string, r *imaging.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, r.ToImage()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
