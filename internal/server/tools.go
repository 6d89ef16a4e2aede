package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the captcha raster (.txt, .jpg, .jpeg, .png, .gif, .bmp, .tif, .tiff)",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Raster Information
		{
			Name:        "image_load",
			Description: "Load a captcha raster and return its dimensions and format. The raster is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_cache_clear",
			Description: "Drop a cached raster so it is read from disk again, or drop every cached raster when no path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Raster to evict. Omit to clear the whole cache",
					},
				},
			},
		},

		// Recognition
		{
			Name:        "captcha_solve",
			Description: "Recognize a captcha and return its answer: one label per glyph, left to right, with no separators.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the answer to, without a trailing newline",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "captcha_explain",
			Description: "Recognize a captcha and report, for every glyph, its column span, the winning label and correlation score, and the runner-up.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Segmentation
		{
			Name:        "captcha_segment",
			Description: "Binarize a captcha and return the text band, the glyph column runs, and each normalized glyph as rows of 0 (ink) and 1 (background).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "captcha_overlay",
			Description: "Draw the text band and every glyph box on the captcha and return it as a base64-encoded PNG. Use this to check why a captcha segments badly.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Upscale factor applied before drawing (default 4, at most 32)",
						"default":     4,
					},
				},
				"required": []string{"path"},
			},
		},

		{
			Name:        "captcha_glyph_image",
			Description: "Crop one glyph's box from the original captcha and return it as a base64-encoded PNG, before binarization and normalization.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Glyph position, 0 for the leftmost",
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Upscale factor (default 8, at most 32)",
						"default":     8,
					},
				},
				"required": []string{"path", "index"},
			},
		},

		// Template Bank
		{
			Name:        "captcha_bank_info",
			Description: "Describe the loaded template bank: source, glyph shape, labels in classification order, and content fingerprint.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
