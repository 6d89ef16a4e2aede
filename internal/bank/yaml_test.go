package bank

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
)

const smallBank = `
B:
  - "0110"
  - "1001"
A:
  - [1, 0, 0, 1]
  - [0, 1, 1, 0]
"0":
  - "0000"
  - "1111"
`

func TestLoadYAML(t *testing.T) {
	b, err := LoadYAML(strings.NewReader(smallBank), "small.yaml", 2, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A", "0"}, b.Labels(), "document order must be kept")
	assert.Equal(t, []string{"0110", "1001"}, b.Template(0).Glyph.RowStrings())
	assert.Equal(t, []string{"1001", "0110"}, b.Template(1).Glyph.RowStrings())
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"not a mapping", "- a\n- b\n", "must be a mapping"},
		{"glyph not a list", "A: 0110\n", "list of rows"},
		{"bad int", "A:\n  - [0, 2, 1, 1]\n  - [0, 0, 0, 0]\n", "want 0 or 1"},
		{"bad char", "A:\n  - \"01x1\"\n  - \"0000\"\n", "invalid value"},
		{"ragged", "A:\n  - \"0101\"\n  - \"000\"\n", "columns"},
		{"wrong shape", "A:\n  - \"0101\"\n", "want 2x4"},
		{"duplicate label", "A:\n  - \"0101\"\n  - \"0000\"\nA:\n  - \"0101\"\n  - \"0000\"\n", ""},
		{"nested mapping row", "A:\n  - {x: 1}\n", "string or a list"},
		{"syntax", "A: [\n", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(tt.doc), "bank.yaml", 2, 4)
			require.Error(t, err)
			assert.True(t, cerrors.HasCode(err, cerrors.ErrorModelLoad), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTripKeepsOrder(t *testing.T) {
	src, err := New("mem", 10, 8, testTemplates(t, "q", "3", "K", "a"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, src))

	got, err := LoadYAML(&buf, "mem.yaml", 10, 8)
	require.NoError(t, err)
	assert.Equal(t, src.Labels(), got.Labels())
	assert.Equal(t, src.Fingerprint(), got.Fingerprint())
}

func TestLoadYAMLFile_Compressed(t *testing.T) {
	src, err := New("mem", 10, 8, testTemplates(t, "A", "B", "C"))
	require.NoError(t, err)

	var plain bytes.Buffer
	require.NoError(t, WriteYAML(&plain, src))

	path := filepath.Join(t.TempDir(), "bank.yaml.xz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write(plain.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	b, err := Load(path, 10, 8)
	require.NoError(t, err)
	assert.Equal(t, src.Fingerprint(), b.Fingerprint())
	assert.Equal(t, path, b.Source())
}

func TestLoadYAMLFile_CorruptXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml.xz")
	require.NoError(t, os.WriteFile(path, []byte("not xz at all"), 0o644))

	_, err := Load(path, 10, 8)
	require.Error(t, err)
	assert.True(t, cerrors.HasCode(err, cerrors.ErrorModelLoad))
}
