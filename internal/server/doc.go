// Package server implements the MCP (Model Context Protocol) server for PSI
// pavement survey files.
//
// This package provides a JSON-RPC 2.0 server that exposes the PSI decoder,
// plane rendering, measurement, distress detection and the survey catalog
// to MCP-compatible clients.
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
// Container Information:
//   - psi_sniff: Check signature and trailer framing
//   - psi_info: Parsed header summary
//   - psi_metadata_table: Every header field in file order
//
// Plane Operations:
//   - psi_read_plane: Raw samples of a region as base64
//   - psi_render_plane: PNG rendering with colormap, contrast and gamma
//   - psi_plane_stats: Summary statistics, dropouts counted separately
//   - psi_sample_values: Values at labelled points
//
// Measurement Operations:
//   - psi_measure_distance: Distance in samples and millimetres
//   - psi_grid_overlay: Millimetre grid over a rendering
//
// Feature Detection:
//   - psi_edge_detect: Canny edge detection
//   - psi_detect_lines: Longitudinal, transverse and diagonal cracks
//   - psi_detect_patches: Rectangular patches and cuts
//   - psi_detect_covers: Circular utility covers
//
// Analysis Helpers:
//   - psi_compare_regions: Compare two regions of one image
//
// Catalog:
//   - psi_catalog_add, psi_catalog_query, psi_catalog_metadata
//
// # Caching
//
// Parsed headers are cached by path and invalidated when the file's size
// or modification time changes. Planes are decoded per call and only for
// the requested region.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	logger, err := server.NewLogger(cfg.Log.Level)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg, logger)
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
