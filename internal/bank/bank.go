// Package bank holds the reference glyphs a captcha is classified against.
//
// A Bank is an ordered list of labeled templates. Order is part of the
// classification contract: when two templates score equally, the one stored
// first wins. Every loader therefore keeps the order of its persisted form,
// and no map is ever used to iterate templates.
//
// Banks are validated on construction and never modified afterwards, so one
// Bank can be shared by any number of goroutines.
package bank

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// Template is one labeled reference glyph.
type Template struct {
	Label string
	Glyph *imaging.Grid
}

// Bank is an ordered, immutable set of templates sharing one glyph shape.
type Bank struct {
	templates   []Template
	rows        int
	cols        int
	source      string
	fingerprint string
}

// Info summarizes a bank for display.
type Info struct {
	Source      string   `json:"source"`
	Templates   int      `json:"templates"`
	Rows        int      `json:"rows"`
	Cols        int      `json:"cols"`
	Labels      []string `json:"labels"`
	Fingerprint string   `json:"fingerprint"`
}

// New builds a bank from templates in the given order.
//
// The templates are validated against the rows x cols glyph shape (see
// Validate). source names where the templates came from and is only used in
// errors and Info.
func New(source string, rows, cols int, templates []Template) (*Bank, error) {
	if err := Validate(templates, rows, cols); err != nil {
		return nil, cerrors.NewModelLoadError(source, "invalid bank", err)
	}

	t := make([]Template, len(templates))
	copy(t, templates)

	return &Bank{
		templates:   t,
		rows:        rows,
		cols:        cols,
		source:      source,
		fingerprint: fingerprint(t, rows, cols),
	}, nil
}

// Validate checks that templates form a usable bank: at least one template,
// every label a single printable non-space character, no duplicate labels,
// and every glyph exactly rows x cols.
func Validate(templates []Template, rows, cols int) error {
	if len(templates) == 0 {
		return fmt.Errorf("bank has no templates")
	}

	seen := make(map[string]int, len(templates))
	for i, t := range templates {
		if err := validateLabel(t.Label); err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
		if j, dup := seen[t.Label]; dup {
			return fmt.Errorf("template %d: label %q already used by template %d", i, t.Label, j)
		}
		seen[t.Label] = i

		if t.Glyph == nil {
			return fmt.Errorf("template %q has no glyph", t.Label)
		}
		if t.Glyph.Rows() != rows || t.Glyph.Cols() != cols {
			return fmt.Errorf("template %q is %dx%d, want %dx%d",
				t.Label, t.Glyph.Rows(), t.Glyph.Cols(), rows, cols)
		}
	}
	return nil
}

func validateLabel(label string) error {
	if utf8.RuneCountInString(label) != 1 {
		return fmt.Errorf("label %q must be a single character", label)
	}
	r, _ := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError || !unicode.IsPrint(r) || unicode.IsSpace(r) {
		return fmt.Errorf("label %q is not a printable character", label)
	}
	return nil
}

// fingerprint digests the shape, the labels and the glyphs in bank order.
func fingerprint(templates []Template, rows, cols int) string {
	h := blake3.New()
	fmt.Fprintf(h, "%dx%d\n", rows, cols)
	for _, t := range templates {
		fmt.Fprintf(h, "%s\n%s\n", t.Label, strings.Join(t.Glyph.RowStrings(), "/"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Len returns the number of templates.
func (b *Bank) Len() int { return len(b.templates) }

// Rows returns the glyph height every template has.
func (b *Bank) Rows() int { return b.rows }

// Cols returns the glyph width every template has.
func (b *Bank) Cols() int { return b.cols }

// Source returns where the bank was loaded from.
func (b *Bank) Source() string { return b.source }

// Fingerprint returns the hex BLAKE3 digest of the bank contents. Two banks
// with the same templates in the same order share a fingerprint.
func (b *Bank) Fingerprint() string { return b.fingerprint }

// Template returns the i-th template in bank order.
func (b *Bank) Template(i int) Template { return b.templates[i] }

// Templates returns a copy of the templates in bank order.
func (b *Bank) Templates() []Template {
	t := make([]Template, len(b.templates))
	copy(t, b.templates)
	return t
}

// Labels returns the labels in bank order.
func (b *Bank) Labels() []string {
	labels := make([]string, len(b.templates))
	for i, t := range b.templates {
		labels[i] = t.Label
	}
	return labels
}

// Info returns a summary of the bank.
func (b *Bank) Info() *Info {
	return &Info{
		Source:      b.source,
		Templates:   len(b.templates),
		Rows:        b.rows,
		Cols:        b.cols,
		Labels:      b.Labels(),
		Fingerprint: b.fingerprint,
	}
}

// Load reads a bank from disk, choosing the reader by extension:
// ".yaml"/".yml" (optionally followed by ".xz") or ".db"/".sqlite".
// Every failure is a MODEL_LOAD error.
func Load(path string, rows, cols int) (*Bank, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".yaml.xz"), strings.HasSuffix(lower, ".yml.xz"):
		return LoadYAMLFile(path, rows, cols, true)
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return LoadYAMLFile(path, rows, cols, false)
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return LoadSQLite(path, rows, cols)
	default:
		return nil, cerrors.NewModelLoadError(path,
			fmt.Sprintf("unknown bank format %q", filepath.Ext(path)), nil)
	}
}
