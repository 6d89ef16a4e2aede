package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/captcha-solver/internal/captcha"
	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// Upscale factors that keep single pixels visible on small captchas.
const (
	defaultOverlayScale = 4
	defaultGlyphScale   = 8
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "captcha_solve", "image_load").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Pipeline failures carry their error code in data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", errorData(err))
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Raster Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_cache_clear":
		return s.handleImageCacheClear(args)

	// Recognition
	case "captcha_solve":
		return s.handleCaptchaSolve(args)
	case "captcha_explain":
		return s.handleCaptchaExplain(args)

	// Segmentation
	case "captcha_segment":
		return s.handleCaptchaSegment(args)
	case "captcha_overlay":
		return s.handleCaptchaOverlay(args)
	case "captcha_glyph_image":
		return s.handleCaptchaGlyphImage(args)

	// Template Bank
	case "captcha_bank_info":
		return s.solver.Bank().Info(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// errorData is the structured form of a CaptchaError, or the error string.
func errorData(err error) interface{} {
	var ce *cerrors.CaptchaError
	if errors.As(err, &ce) {
		return ce.ToMap()
	}
	return err.Error()
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Raster Information Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadRasterInfo(s.cache, a.Path)
}

type cacheClearResult struct {
	Cleared string `json:"cleared"`
	Cached  int    `json:"cached"`
}

func (s *Server) handleImageCacheClear(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	if a.Path == "" {
		s.cache.Clear()
		return &cacheClearResult{Cleared: "all", Cached: s.cache.Len()}, nil
	}
	s.cache.Evict(a.Path)
	return &cacheClearResult{Cleared: a.Path, Cached: s.cache.Len()}, nil
}

// === Recognition Handlers ===

type captchaSolveArgs struct {
	Path   string `json:"path"`
	Output string `json:"output"`
}

type captchaSolveResult struct {
	Answer string `json:"answer"`
	Path   string `json:"path"`
	Output string `json:"output,omitempty"`
}

func (s *Server) handleCaptchaSolve(args json.RawMessage) (interface{}, error) {
	var a captchaSolveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	// stdout carries the protocol, so "-" is not a valid output here.
	if a.Output == "-" {
		return nil, fmt.Errorf("output must be a file path")
	}
	r, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	answer, err := s.solver.Recognize(r)
	if err != nil {
		return nil, err
	}
	if a.Output != "" {
		if err := captcha.WriteAnswer(a.Output, answer); err != nil {
			return nil, err
		}
	}

	return &captchaSolveResult{Answer: answer, Path: a.Path, Output: a.Output}, nil
}

func (s *Server) handleCaptchaExplain(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.solver.Explain(r)
}

// === Segmentation Handlers ===

type segmentResult struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Row        [2]int         `json:"row"`
	Columns    [][2]int       `json:"columns"`
	RowRuns    int            `json:"row_runs"`
	ColumnRuns int            `json:"column_runs"`
	Glyphs     []segmentGlyph `json:"glyphs"`
}

type segmentGlyph struct {
	Index int      `json:"index"`
	Rows  []string `json:"rows"`
}

func (s *Server) handleCaptchaSegment(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	layout, err := s.solver.Segment(r)
	if err != nil {
		return nil, err
	}
	seg := layout.Segmentation

	result := &segmentResult{
		Width:      r.Width(),
		Height:     r.Height(),
		Row:        [2]int{seg.Row.Start, seg.Row.End},
		Columns:    make([][2]int, len(seg.Columns)),
		RowRuns:    seg.RowRuns,
		ColumnRuns: seg.ColumnRuns,
		Glyphs:     make([]segmentGlyph, len(layout.Glyphs)),
	}
	for i, c := range seg.Columns {
		result.Columns[i] = [2]int{c.Start, c.End}
	}
	for i, g := range layout.Glyphs {
		result.Glyphs[i] = segmentGlyph{Index: i, Rows: g.RowStrings()}
	}
	return result, nil
}

type captchaOverlayArgs struct {
	Path  string `json:"path"`
	Scale int    `json:"scale"`
}

func (s *Server) handleCaptchaOverlay(args json.RawMessage) (interface{}, error) {
	var a captchaOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = defaultOverlayScale
	}
	r, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	layout, err := s.solver.Segment(r)
	if err != nil {
		return nil, err
	}
	return imaging.Overlay(r, layout.Segmentation.Band(r.Width()), layout.Boxes(), a.Scale)
}

type captchaGlyphImageArgs struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
	Scale int    `json:"scale"`
}

func (s *Server) handleCaptchaGlyphImage(args json.RawMessage) (interface{}, error) {
	var a captchaGlyphImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = defaultGlyphScale
	}
	r, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	layout, err := s.solver.Segment(r)
	if err != nil {
		return nil, err
	}
	boxes := layout.Boxes()
	if a.Index < 0 || a.Index >= len(boxes) {
		return nil, fmt.Errorf("glyph index %d out of range [0, %d)", a.Index, len(boxes))
	}
	return imaging.Crop(r, boxes[a.Index], a.Scale)
}
