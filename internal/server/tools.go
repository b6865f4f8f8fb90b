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
		"description": "Absolute path to the PSI file",
	}
}

func imageProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"2d", "3d"},
		"description": "Which raster to read: 2d (intensity) or 3d (range). Default 3d",
		"default":     "3d",
	}
}

func regionProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x":      map[string]interface{}{"type": "integer", "description": "Left sample (transverse)"},
			"y":      map[string]interface{}{"type": "integer", "description": "First scan line (longitudinal)"},
			"width":  map[string]interface{}{"type": "integer"},
			"height": map[string]interface{}{"type": "integer"},
		},
		"required":    []string{"x", "y", "width", "height"},
		"description": description,
	}
}

func quadrantProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"full", "top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
		"description": "Named part of the image, used when region is omitted",
	}
}

// planeProperties are shared by every tool that decodes a plane.
func planeProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path":     pathProperty(),
		"image":    imageProperty(),
		"region":   regionProperty("Optional region in samples. If omitted, the quadrant or the whole image is used."),
		"quadrant": quadrantProperty(),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func renderProperties() map[string]interface{} {
	return map[string]interface{}{
		"scale": map[string]interface{}{
			"type":        "number",
			"description": "Resize factor (e.g., 0.25 for an overview). Default from configuration",
		},
		"contrast": map[string]interface{}{
			"type":        "number",
			"description": "Contrast change in [-1, 1]. Default from configuration",
		},
		"gamma": map[string]interface{}{
			"type":        "number",
			"description": "Gamma correction. Default from configuration",
		},
		"colormap": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Hex colour stops for 3D planes, low to high. An empty array renders grayscale",
		},
		"flip_vertical": map[string]interface{}{
			"type":        "boolean",
			"description": "Put the first scan line at the bottom",
		},
	}
}

func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Container Information
		{
			Name:        "psi_sniff",
			Description: "Check whether a file is framed as a PSI container (signature and trailer) without parsing the header.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_info",
			Description: "Parse the PSI header and return survey metadata: route, lane, position, both raster layouts and their physical extent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_metadata_table",
			Description: "Return every header field in file order as key/value pairs, including derived payload offsets.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Plane Operations
		{
			Name:        "psi_read_plane",
			Description: "Decode raw samples of a region as row-major little-endian bytes, base64-encoded. Use psi_render_plane to view instead.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": planeProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "psi_render_plane",
			Description: "Render a region of the 2D or 3D raster as a PNG. 3D planes are colour mapped by height; 2D planes are grayscale intensity.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": planeProperties(renderProperties()),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "psi_plane_stats",
			Description: "Summary statistics of a region: min, max, mean, standard deviation, median and 5th/95th percentiles. 3D results include mean height in mm.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": planeProperties(map[string]interface{}{
					"ignore_zero": map[string]interface{}{
						"type":        "boolean",
						"description": "Exclude zero samples (no return on 3D planes). Default true",
						"default":     true,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_sample_values",
			Description: "Read the raw value (and height in mm for 3D) at one or more sample coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"image": imageProperty(),
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string", "description": "Optional label for this point"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Array of points to sample",
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Measurement Operations
		{
			Name:        "psi_measure_distance",
			Description: "Measure the distance between two samples in samples and millimetres, using the image's transverse and longitudinal resolutions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"image": imageProperty(),
					"x1":    map[string]interface{}{"type": "integer", "description": "First point X"},
					"y1":    map[string]interface{}{"type": "integer", "description": "First point Y"},
					"x2":    map[string]interface{}{"type": "integer", "description": "Second point X"},
					"y2":    map[string]interface{}{"type": "integer", "description": "Second point Y"},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "psi_grid_overlay",
			Description: "Render a region with a millimetre grid overlay for positioning reference.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": planeProperties(merge(renderProperties(), map[string]interface{}{
					"grid_spacing_mm": map[string]interface{}{
						"type":        "number",
						"description": "Millimetres between grid lines (default 500)",
						"default":     500,
					},
					"show_coordinates": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether to label grid intersections in millimetres",
						"default":     true,
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid line color as hex (default #FF000080 - semi-transparent red)",
						"default":     "#FF000080",
					},
				})),
				"required": []string{"path"},
			},
		},

		// Feature Detection
		{
			Name:        "psi_edge_detect",
			Description: "Return a Canny edge map of a region. On 3D planes edges follow crack walls and joint faces; zero-range dropouts are counted and masked.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": planeProperties(map[string]interface{}{
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low threshold for Canny edge detection (default 50)",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High threshold for Canny edge detection (default 150)",
						"default":     150,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_detect_lines",
			Description: "Detect straight segments such as cracks, joints and lane markings, classified as longitudinal, transverse or diagonal, with lengths in mm.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": planeProperties(map[string]interface{}{
					"min_length": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum line length in samples (default 20)",
						"default":     20,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_detect_patches",
			Description: "Detect rectangular patches and slab repairs, with sizes in mm and area in m².",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": planeProperties(map[string]interface{}{
					"min_area": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum area in square samples (default 100)",
						"default":     100,
					},
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "How close to rectangular an outline must be (0-1, default 0.9)",
						"default":     0.9,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_detect_covers",
			Description: "Detect circular utility covers (manholes, valve boxes) with diameters in mm.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": planeProperties(map[string]interface{}{
					"min_radius": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum radius in samples (default 5)",
						"default":     5,
					},
					"max_radius": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum radius in samples (default 100)",
						"default":     100,
					},
				}),
				"required": []string{"path"},
			},
		},

		// Analysis Helpers
		{
			Name:        "psi_compare_regions",
			Description: "Compare two regions of the same image sample by sample (useful for repeated texture or before/after patches).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"image":   imageProperty(),
					"region1": regionProperty("First region"),
					"region2": regionProperty("Second region"),
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Absolute sample difference counted as different (default 10)",
						"default":     10,
					},
				},
				"required": []string{"path", "region1", "region2"},
			},
		},

		// Catalog
		{
			Name:        "psi_catalog_add",
			Description: "Parse a PSI file and add it to the survey catalog, replacing any earlier entry for the same path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "psi_catalog_query",
			Description: "List catalogued surveys, optionally filtered by route, state and lane.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"route": map[string]interface{}{"type": "string"},
					"state": map[string]interface{}{"type": "string"},
					"lane":  map[string]interface{}{"type": "integer"},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of surveys (default 100)",
						"default":     100,
					},
				},
			},
		},
		{
			Name:        "psi_catalog_metadata",
			Description: "Return the stored metadata table of a catalogued survey.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Survey ID returned by psi_catalog_add or psi_catalog_query",
					},
				},
				"required": []string{"id"},
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
