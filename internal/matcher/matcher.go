// Package matcher classifies normalized glyphs against a template bank by
// Pearson correlation.
package matcher

import (
	"math"

	"github.com/ironsheep/captcha-solver/internal/bank"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// Pearson returns the correlation coefficient of a and b.
//
// The result is NaN when the slices differ in length, are empty, or when
// either has zero variance (a uniform glyph). Otherwise it lies in [-1, 1],
// and identical inputs score exactly 1.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return math.NaN()
	}

	var ma, mb float64
	for i := 0; i < n; i++ {
		ma += a[i]
		mb += b[i]
	}
	ma /= float64(n)
	mb /= float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		da, db := a[i]-ma, b[i]-mb
		sxy += da * db
		sxx += da * da
		syy += db * db
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}

	// One square root of the product keeps a == b at exactly sxx/sxx.
	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r))
}

// Score is the correlation of a glyph with one template.
type Score struct {
	Label string  `json:"label"`
	Value float64 `json:"score"`
}

// Scores correlates glyph with every template, in bank order. Entries are
// NaN where the correlation is undefined.
func Scores(glyph *imaging.Grid, b *bank.Bank) []Score {
	flat := glyph.Flatten()
	out := make([]Score, b.Len())
	for i := range out {
		t := b.Template(i)
		out[i] = Score{Label: t.Label, Value: Pearson(flat, t.Glyph.Flatten())}
	}
	return out
}

// Best picks the winner from scores kept in bank order.
//
// NaN scores are skipped and a later score must be strictly greater to
// replace the current best, so the earliest label wins ties. When every
// score is NaN the first label is returned with a NaN score. scores must
// not be empty.
func Best(scores []Score) Score {
	best := -1
	for i, s := range scores {
		if math.IsNaN(s.Value) {
			continue
		}
		if best < 0 || s.Value > scores[best].Value {
			best = i
		}
	}
	if best < 0 {
		return Score{Label: scores[0].Label, Value: math.NaN()}
	}
	return scores[best]
}

// Classify returns the label of the template that best matches glyph, with
// its score. See Best for the tie and NaN rules.
func Classify(glyph *imaging.Grid, b *bank.Bank) (string, float64) {
	s := Best(Scores(glyph, b))
	return s.Label, s.Value
}

// RunnerUp returns the best score among labels other than winner, or false
// when there is none with a defined score.
func RunnerUp(scores []Score, winner string) (Score, bool) {
	rest := make([]Score, 0, len(scores))
	for _, s := range scores {
		if s.Label != winner && !math.IsNaN(s.Value) {
			rest = append(rest, s)
		}
	}
	if len(rest) == 0 {
		return Score{}, false
	}
	return Best(rest), true
}
