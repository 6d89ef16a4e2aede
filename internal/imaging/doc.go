// Package imaging provides the raster-level operations of the captcha solver.
//
// This package loads captcha images into an RGB Raster, converts rasters into
// two-level Grids (binarization), and provides the grid operations used to
// normalize glyphs: inclusive cropping and nearest-neighbor resampling. It
// also renders debug artifacts (segmentation overlays and glyph dumps).
//
// # Coordinate System
//
// Rasters and grids are addressed as (row, column), both 0-based, with
// (0,0) at the top-left corner. Rows increase downward and columns increase
// rightward. Grid crop bounds are inclusive on both ends; image.Rectangle
// values used for overlays follow the standard library convention (Min
// inclusive, Max exclusive).
//
// # Raster Formats
//
// LoadRaster dispatches on the file extension:
//   - ".txt": textual grid, header "<rows> <cols>" followed by rows of
//     "r,g,b" triples
//   - ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff": compressed
//     images decoded with github.com/disintegration/imaging and normalized
//     to RGB channel order
//
// Anything else is rejected with an UNSUPPORTED_FORMAT error.
//
// # Grid Values
//
// A Grid holds only 0 (ink) and 1 (background). Binarize maps gray values
// above the threshold to background.
//
// # Thread Safety
//
// Raster and Grid values are immutable after construction and can be shared
// between goroutines. RasterCache is safe for concurrent use.
package imaging
