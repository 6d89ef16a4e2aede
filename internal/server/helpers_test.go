package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/captcha-solver/internal/bank"
	"github.com/ironsheep/captcha-solver/internal/captcha"
	"github.com/ironsheep/captcha-solver/internal/config"
	"github.com/ironsheep/captcha-solver/internal/imaging"
)

// glyphStarts are the first columns of the five 8-wide glyphs drawn by
// createCaptchaFile, each followed by a blank column.
var glyphStarts = []int{1, 10, 19, 28, 37}

// captchaSeeds pick the glyph pattern at each position: H E L L O.
var captchaSeeds = []int{0, 1, 2, 2, 4}

// glyphRows draws an 8x10 glyph; solid edge columns keep it one column run.
func glyphRows(seed int) []string {
	rows := make([]string, 10)
	for r := range rows {
		b := []byte(strings.Repeat("1", 8))
		for c := 0; c < 8; c++ {
			if c == 0 || c == 7 || (r+c*(seed+1))%(seed+3) == 0 {
				b[c] = '0'
			}
		}
		rows[r] = string(b)
	}
	return rows
}

// createCaptchaFile writes a 46x14 PNG captcha spelling "HELLO" with the
// glyphs of newTestSolver's bank, and returns its path.
func createCaptchaFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 46, 14))
	for y := 0; y < 14; y++ {
		for x := 0; x < 46; x++ {
			img.Set(x, y, color.White)
		}
	}
	for i, start := range glyphStarts {
		for r, row := range glyphRows(captchaSeeds[i]) {
			for c := 0; c < len(row); c++ {
				if row[c] == '0' {
					img.Set(start+c, 2+r, color.RGBA{10, 10, 40, 255})
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "captcha.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create captcha file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode captcha: %v", err)
	}
	return path
}

// newTestSolver returns a solver whose bank maps the createCaptchaFile
// glyphs to H, E, L, O.
func newTestSolver(t *testing.T) *captcha.Solver {
	t.Helper()

	// X duplicates L; L wins the tie by bank order.
	labels := []string{"H", "E", "L", "X", "O"}
	seeds := []int{0, 1, 2, 2, 4}

	var templates []bank.Template
	for i, label := range labels {
		g, err := imaging.ParseGrid(glyphRows(seeds[i]))
		if err != nil {
			t.Fatalf("ParseGrid failed: %v", err)
		}
		templates = append(templates, bank.Template{Label: label, Glyph: g})
	}

	b, err := bank.New("test", 10, 8, templates)
	if err != nil {
		t.Fatalf("bank.New failed: %v", err)
	}
	s, err := captcha.New(config.Default(), b, nil)
	if err != nil {
		t.Fatalf("captcha.New failed: %v", err)
	}
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(newTestSolver(t), nil)
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolResult decodes the JSON text content of a successful tool response.
func toolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}
