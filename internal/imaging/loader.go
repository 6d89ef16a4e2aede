package imaging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
)

// Raster formats recognized by LoadRaster.
const (
	FormatText       = "text"
	FormatCompressed = "image"
)

// maxTextLine bounds a single line of a textual raster (about 80k pixels).
const maxTextLine = 1024 * 1024

// DetectFormat maps a path to a raster format by its extension.
//
// Returns FormatText for ".txt", FormatCompressed for the image extensions the
// decoder understands, and an UNSUPPORTED_FORMAT error for anything else.
// Matching is case-insensitive.
func DetectFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return FormatText, nil
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return FormatCompressed, nil
	default:
		return "", cerrors.NewUnsupportedFormatError(path, ext)
	}
}

// LoadRaster reads a captcha raster from disk.
//
// Parameters:
//   - path: file path; the extension selects the format (see DetectFormat).
//
// Returns:
//   - *Raster: the decoded RGB raster.
//   - error: UNSUPPORTED_FORMAT for unknown extensions, FORMAT for malformed
//     textual rasters, DECODE for undecodable images, or a wrapped I/O error
//     when the file cannot be opened.
func LoadRaster(path string) (*Raster, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer f.Close()

	if format == FormatText {
		return ParseTextRaster(f, path)
	}
	return DecodeRaster(f, path)
}

// DecodeRaster decodes a compressed image (JPEG, PNG, GIF, BMP, TIFF) into an
// RGB raster. path is only used in error messages.
func DecodeRaster(r io.Reader, path string) (*Raster, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, cerrors.NewDecodeError(path, err)
	}
	if img.Bounds().Empty() {
		return nil, cerrors.NewDecodeError(path, fmt.Errorf("image has no pixels"))
	}
	return FromImage(img), nil
}

// ParseTextRaster parses the textual raster format.
//
// The first line is "<rows> <cols>". It is followed by exactly rows lines,
// each holding exactly cols whitespace-separated "r,g,b" triples with every
// channel in 0-255. Trailing blank lines are ignored. Any other mismatch is
// a FORMAT error; path is only used in error messages.
func ParseTextRaster(r io.Reader, path string) (*Raster, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTextLine)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.NewFormatError(path, "failed to read text raster: %v", err)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, cerrors.NewFormatError(path, "missing header line")
	}

	rows, cols, err := parseHeader(lines[0])
	if err != nil {
		return nil, cerrors.NewFormatError(path, "invalid header %q: %v", lines[0], err)
	}

	data := lines[1:]
	if len(data) != rows {
		return nil, cerrors.NewFormatError(path, "header declares %d rows, found %d", rows, len(data))
	}

	// pix is sized from cols only after a row has matched it.
	var pix []uint8
	for y, line := range data {
		fields := strings.Fields(line)
		if len(fields) != cols {
			return nil, cerrors.NewFormatError(path, "row %d: header declares %d columns, found %d", y, cols, len(fields))
		}
		if pix == nil {
			pix = make([]uint8, 0, rows*cols*3)
		}
		for x, field := range fields {
			rgb, err := parseTriple(field)
			if err != nil {
				return nil, cerrors.NewFormatError(path, "row %d, column %d: %v", y, x, err)
			}
			pix = append(pix, rgb[0], rgb[1], rgb[2])
		}
	}

	return &Raster{width: cols, height: rows, pix: pix}, nil
}

func parseHeader(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}
	rows, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("rows: %w", err)
	}
	cols, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("cols: %w", err)
	}
	if rows <= 0 || cols <= 0 {
		return 0, 0, fmt.Errorf("dimensions must be positive, got %dx%d", rows, cols)
	}
	return rows, cols, nil
}

func parseTriple(field string) ([3]uint8, error) {
	var rgb [3]uint8
	parts := strings.Split(field, ",")
	if len(parts) != 3 {
		return rgb, fmt.Errorf("pixel %q is not an r,g,b triple", field)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return rgb, fmt.Errorf("pixel %q: %w", field, err)
		}
		if v < 0 || v > 255 {
			return rgb, fmt.Errorf("pixel %q: channel %d out of range", field, v)
		}
		rgb[i] = uint8(v)
	}
	return rgb, nil
}

// RasterCache provides thread-safe caching of loaded rasters to avoid
// redundant disk reads.
//
// Rasters are keyed by the exact path string given to Load. Since rasters are
// immutable, the same value can be handed to any number of goroutines.
// Cached rasters stay in memory until Evict or Clear is called.
type RasterCache struct {
	mu      sync.RWMutex
	rasters map[string]*Raster
}

// NewRasterCache creates an empty raster cache.
func NewRasterCache() *RasterCache {
	return &RasterCache{
		rasters: make(map[string]*Raster),
	}
}

// Load returns the cached raster for path, loading it with LoadRaster on a
// miss. Failed loads are not cached.
func (c *RasterCache) Load(path string) (*Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := LoadRaster(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Len returns the number of cached rasters.
func (c *RasterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// Clear removes all rasters from the cache.
func (c *RasterCache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[string]*Raster)
	c.mu.Unlock()
}

// Evict removes a specific raster from the cache by its path.
func (c *RasterCache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}

// RasterInfo contains metadata about a raster file.
type RasterInfo struct {
	// Width is the raster width in pixels.
	Width int `json:"width"`

	// Height is the raster height in pixels.
	Height int `json:"height"`

	// Format is "text" or "image", see DetectFormat.
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadRasterInfo loads a raster through the cache and reports its metadata.
func LoadRasterInfo(cache *RasterCache, path string) (*RasterInfo, error) {
	r, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	// Load already validated the extension.
	format, _ := DetectFormat(path)

	return &RasterInfo{
		Width:         r.Width(),
		Height:        r.Height(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
