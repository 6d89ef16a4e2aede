// Package server implements the MCP (Model Context Protocol) server for the
// captcha solver.
//
// This package provides a JSON-RPC 2.0 server that exposes recognition and
// its diagnostics through the MCP protocol, so an MCP client can solve
// captchas and inspect why a captcha was read the way it was.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Raster Information:
//   - image_load: Load a raster and get metadata
//   - image_cache_clear: Evict one or all cached rasters
//
// Recognition:
//   - captcha_solve: Recognize a captcha
//   - captcha_explain: Recognize with per-glyph scores
//
// Segmentation:
//   - captcha_segment: Band, column runs and normalized glyphs
//   - captcha_overlay: Segmentation boxes drawn on the raster
//   - captcha_glyph_image: One glyph box cropped from the raster
//
// Template Bank:
//   - captcha_bank_info: Labels, shape and fingerprint of the bank
//
// # Raster Caching
//
// Rasters are cached by path and reused across tool calls. The template
// bank is loaded once, before the server starts, and shared by every call.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: for pipeline failures, an object with error_code (FORMAT,
//     DECODE, SEGMENTATION, ...) and message; otherwise the Go error string
//
// # Usage
//
//	srv := server.New(solver, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
