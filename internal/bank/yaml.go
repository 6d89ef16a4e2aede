package bank

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// LoadYAMLFile opens a YAML bank, decompressing it with xz when compressed
// is set.
func LoadYAMLFile(path string, rows, cols int, compressed bool) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.NewModelLoadError(path, "failed to open bank", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, cerrors.NewModelLoadError(path, "failed to open xz stream", err)
		}
		r = xzr
	}

	return LoadYAML(r, path, rows, cols)
}

// LoadYAML parses a YAML bank.
//
// The document is a mapping from label to glyph. A glyph is a list of rows,
// each row either a string of '0'/'1' characters or a list of integers:
//
//	A:
//	  - "11100111"
//	  - [1, 1, 0, 1, 1, 0, 1, 1]
//	  ...
//
// Templates keep document order. path is only used in errors.
func LoadYAML(r io.Reader, path string, rows, cols int) (*Bank, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, cerrors.NewModelLoadError(path, "bank is empty", nil)
		}
		return nil, cerrors.NewModelLoadError(path, "failed to parse bank", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, cerrors.NewModelLoadError(path,
			fmt.Sprintf("line %d: bank must be a mapping of label to glyph rows", root.Line), nil)
	}

	templates := make([]Template, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		glyph, err := parseGlyphNode(value)
		if err != nil {
			return nil, cerrors.NewModelLoadError(path,
				fmt.Sprintf("line %d: template %q", key.Line, key.Value), err)
		}
		templates = append(templates, Template{Label: key.Value, Glyph: glyph})
	}

	return New(path, rows, cols, templates)
}

func parseGlyphNode(n *yaml.Node) (*imaging.Grid, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("glyph must be a list of rows")
	}

	lines := make([]string, 0, len(n.Content))
	for i, row := range n.Content {
		switch row.Kind {
		case yaml.ScalarNode:
			lines = append(lines, row.Value)
		case yaml.SequenceNode:
			var values []int
			if err := row.Decode(&values); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			var b strings.Builder
			for _, v := range values {
				if v != 0 && v != 1 {
					return nil, fmt.Errorf("row %d: value %d, want 0 or 1", i, v)
				}
				b.WriteByte(byte('0' + v))
			}
			lines = append(lines, b.String())
		default:
			return nil, fmt.Errorf("row %d: must be a string or a list of integers", i)
		}
	}

	return imaging.ParseGrid(lines)
}

// WriteYAML writes b in the YAML form LoadYAML reads, one row string per
// line, keeping bank order.
func WriteYAML(w io.Writer, b *Bank) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, t := range b.templates {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, row := range t.Glyph.RowStrings() {
			seq.Content = append(seq.Content, &yaml.Node{
				Kind:  yaml.ScalarNode,
				Style: yaml.DoubleQuotedStyle,
				Value: row,
			})
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: t.Label},
			seq)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode bank: %w", err)
	}
	return enc.Close()
}
