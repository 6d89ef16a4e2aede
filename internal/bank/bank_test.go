package bank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// patternRows returns rows x cols row strings with a pattern that differs for
// every seed.
func patternRows(rows, cols, seed int) []string {
	out := make([]string, rows)
	for r := 0; r < rows; r++ {
		b := make([]byte, cols)
		for c := 0; c < cols; c++ {
			if (r*cols+c+seed)%(seed+2) == 0 {
				b[c] = '0'
			} else {
				b[c] = '1'
			}
		}
		out[r] = string(b)
	}
	return out
}

func patternGlyph(t *testing.T, rows, cols, seed int) *imaging.Grid {
	t.Helper()
	g, err := imaging.ParseGrid(patternRows(rows, cols, seed))
	require.NoError(t, err)
	return g
}

func testTemplates(t *testing.T, labels ...string) []Template {
	t.Helper()
	out := make([]Template, len(labels))
	for i, l := range labels {
		out[i] = Template{Label: l, Glyph: patternGlyph(t, 10, 8, i)}
	}
	return out
}

func TestNew_KeepsOrder(t *testing.T) {
	b, err := New("mem", 10, 8, testTemplates(t, "Z", "A", "7", "m"))
	require.NoError(t, err)

	assert.Equal(t, 4, b.Len())
	assert.Equal(t, []string{"Z", "A", "7", "m"}, b.Labels())
	assert.Equal(t, "A", b.Template(1).Label)
	assert.Equal(t, 10, b.Rows())
	assert.Equal(t, 8, b.Cols())
	assert.Equal(t, "mem", b.Source())
}

func TestNew_CopiesTemplates(t *testing.T) {
	templates := testTemplates(t, "A", "B")
	b, err := New("mem", 10, 8, templates)
	require.NoError(t, err)

	templates[0].Label = "X"
	assert.Equal(t, "A", b.Template(0).Label)

	out := b.Templates()
	out[1].Label = "Y"
	assert.Equal(t, "B", b.Template(1).Label)
}

func TestValidate(t *testing.T) {
	good := patternGlyph(t, 10, 8, 0)

	tests := []struct {
		name      string
		templates []Template
		wantErr   string
	}{
		{"empty", nil, "no templates"},
		{"multi-char label", []Template{{Label: "AB", Glyph: good}}, "single character"},
		{"empty label", []Template{{Label: "", Glyph: good}}, "single character"},
		{"space label", []Template{{Label: " ", Glyph: good}}, "printable"},
		{"control label", []Template{{Label: "\t", Glyph: good}}, "printable"},
		{"duplicate", []Template{{Label: "A", Glyph: good}, {Label: "A", Glyph: good}}, "already used"},
		{"nil glyph", []Template{{Label: "A"}}, "no glyph"},
		{"wrong shape", []Template{{Label: "A", Glyph: patternGlyph(t, 9, 8, 0)}}, "is 9x8, want 10x8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.templates, 10, 8)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, Validate([]Template{{Label: "é", Glyph: good}}, 10, 8))
}

func TestNew_InvalidIsModelLoadError(t *testing.T) {
	_, err := New("bank.yaml", 10, 8, nil)
	require.Error(t, err)
	assert.True(t, cerrors.HasCode(err, cerrors.ErrorModelLoad))
}

func TestFingerprint(t *testing.T) {
	a, err := New("a", 10, 8, testTemplates(t, "A", "B"))
	require.NoError(t, err)
	b, err := New("b", 10, 8, testTemplates(t, "A", "B"))
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "source must not affect fingerprint")

	// Same glyphs, different order.
	tpl := testTemplates(t, "A", "B")
	tpl[0], tpl[1] = tpl[1], tpl[0]
	c, err := New("c", 10, 8, tpl)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestInfo(t *testing.T) {
	b, err := New("mem", 10, 8, testTemplates(t, "A", "B", "C"))
	require.NoError(t, err)

	info := b.Info()
	assert.Equal(t, "mem", info.Source)
	assert.Equal(t, 3, info.Templates)
	assert.Equal(t, []string{"A", "B", "C"}, info.Labels)
	assert.Equal(t, b.Fingerprint(), info.Fingerprint)
}

func TestLoad_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.pkl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Load(path, 10, 8)
	require.Error(t, err)
	assert.True(t, cerrors.HasCode(err, cerrors.ErrorModelLoad))
	assert.Contains(t, err.Error(), ".pkl")
}

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bank.yaml", "bank.yaml.xz", "bank.db"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(filepath.Join(dir, name), 10, 8)
			require.Error(t, err)
			assert.True(t, cerrors.HasCode(err, cerrors.ErrorModelLoad))
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}

	// The SQLite loader must not leave an empty database behind.
	_, err := os.Stat(filepath.Join(dir, "bank.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_DispatchIsCaseInsensitive(t *testing.T) {
	src, err := New("mem", 10, 8, testTemplates(t, "A"))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, WriteYAML(&buf, src))
	path := filepath.Join(t.TempDir(), "BANK.YML")
	require.NoError(t, os.WriteFile(path, []byte(buf.String()), 0o644))

	b, err := Load(path, 10, 8)
	require.NoError(t, err)
	assert.Equal(t, src.Fingerprint(), b.Fingerprint())
}
