package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"image_load",
		"image_cache_clear",
		"captcha_solve",
		"captcha_explain",
		"captcha_segment",
		"captcha_overlay",
		"captcha_glyph_image",
		"captcha_bank_info",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}

	// Check all expected tools exist
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(toolMap) != len(tools) {
		t.Error("Tool names are not unique")
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name is empty")
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("InputSchema is nil")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}
			if _, ok := tool.InputSchema["properties"].(map[string]interface{}); !ok {
				t.Error("InputSchema properties should be a map")
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	needPath := map[string]bool{
		"image_load":          true,
		"captcha_solve":       true,
		"captcha_explain":     true,
		"captcha_segment":     true,
		"captcha_overlay":     true,
		"captcha_glyph_image": true,
	}

	for _, tool := range GetToolDefinitions() {
		required, _ := tool.InputSchema["required"].([]string)
		hasPath := false
		for _, r := range required {
			if r == "path" {
				hasPath = true
			}
		}
		if hasPath != needPath[tool.Name] {
			t.Errorf("%s: path required = %v, want %v", tool.Name, hasPath, needPath[tool.Name])
		}
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "captcha_overlay" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		scale, ok := props["scale"].(map[string]interface{})
		if !ok {
			t.Fatal("captcha_overlay has no scale property")
		}
		if scale["default"] != defaultOverlayScale {
			t.Errorf("scale default: got %v, want %d", scale["default"], defaultOverlayScale)
		}
		return
	}
	t.Fatal("captcha_overlay not defined")
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 7})

	if resp.ID != 7 {
		t.Errorf("ID: got %v, want 7", resp.ID)
	}

	// Definitions must survive the wire.
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded struct {
		Result struct {
			Tools []Tool `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if len(decoded.Result.Tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools, want %d", len(decoded.Result.Tools), len(GetToolDefinitions()))
	}
}
