// Package detection locates glyphs in a binarized captcha by projection.
//
// A grid is collapsed onto each axis by taking the minimum of every row and
// every column: a projected value is 0 when any cell on that line is ink.
// Maximal stretches of zeros in a projection are runs. The first row run is
// the text band, and the column runs inside it are the glyphs, read left to
// right.
//
// # Coordinate System
//
// Runs hold inclusive indices. Rectangles returned by Segmentation.Band and
// Segmentation.Glyphs use the standard image convention instead:
//   - X is the column, Y is the row
//   - Min is inclusive, Max is exclusive
//
// # Limitations
//
// Segmentation assumes the fixed captcha layout: a single horizontal band
// of glyphs that never touch each other. Touching glyphs merge into one
// column run, and extra row bands are ignored.
package detection
