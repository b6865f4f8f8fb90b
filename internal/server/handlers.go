package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/psi-tools-mcp/internal/catalog"
	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
	"github.com/ironsheep/psi-tools-mcp/internal/detection"
	"github.com/ironsheep/psi-tools-mcp/internal/imaging"
	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "psi_info", "psi_render_plane").
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
// Tool execution errors, and results that cannot be encoded, return a
// JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "err", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	text, err := marshalResult(result)
	if err != nil {
		s.logger.Error("tool result not encodable", "tool", params.Name, "err", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool call", "tool", params.Name, "elapsed", time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": text,
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the survey header from cache and decodes the plane it needs
//  4. Calls the appropriate psi/imaging/detection/catalog function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Container Information
	case "psi_sniff":
		return s.handleSniff(args)
	case "psi_info":
		return s.handleInfo(args)
	case "psi_metadata_table":
		return s.handleMetadataTable(args)

	// Plane Operations
	case "psi_read_plane":
		return s.handleReadPlane(args)
	case "psi_render_plane":
		return s.handleRenderPlane(args)
	case "psi_plane_stats":
		return s.handlePlaneStats(args)
	case "psi_sample_values":
		return s.handleSampleValues(args)

	// Measurement Operations
	case "psi_measure_distance":
		return s.handleMeasureDistance(args)
	case "psi_grid_overlay":
		return s.handleGridOverlay(args)

	// Feature Detection
	case "psi_edge_detect":
		return s.handleEdgeDetect(args)
	case "psi_detect_lines":
		return s.handleDetectLines(args)
	case "psi_detect_patches":
		return s.handleDetectPatches(args)
	case "psi_detect_covers":
		return s.handleDetectCovers(args)

	// Analysis Helpers
	case "psi_compare_regions":
		return s.handleCompareRegions(args)

	// Catalog
	case "psi_catalog_add":
		return s.handleCatalogAdd(ctx, args)
	case "psi_catalog_query":
		return s.handleCatalogQuery(ctx, args)
	case "psi_catalog_metadata":
		return s.handleCatalogMetadata(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
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

// marshalResult converts a tool result to pretty-printed JSON.
func marshalResult(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

// === Shared argument handling ===

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// planeArgs selects an image and a part of it.
type planeArgs struct {
	Path     string      `json:"path"`
	Image    string      `json:"image"`
	Region   *psi.Region `json:"region,omitempty"`
	Quadrant string      `json:"quadrant"`
}

// selector parses the image argument; empty means 3D.
func (a planeArgs) selector() (psi.ImageSelector, error) {
	if a.Image == "" {
		return psi.Image3D, nil
	}
	return psi.ParseImageSelector(a.Image)
}

// loadPlane decodes the plane selected by a. An explicit region wins over
// a quadrant; with neither the whole image is read.
func (s *Server) loadPlane(a planeArgs) (*imaging.Plane, error) {
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	sel, err := a.selector()
	if err != nil {
		return nil, err
	}

	var region psi.Region
	switch {
	case a.Region != nil:
		if a.Region.Empty() {
			return nil, fmt.Errorf("region %s is empty", *a.Region)
		}
		region = *a.Region
	case a.Quadrant != "":
		rec, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		layout, err := rec.Layout(sel)
		if err != nil {
			return nil, err
		}
		if region, err = imaging.QuadrantRegion(layout.Width, layout.Length, a.Quadrant); err != nil {
			return nil, err
		}
	}
	return s.cache.ReadPlane(a.Path, sel, region, s.cfg.Limits.MaxPlanePixels)
}

// renderArgs override the configured render options when set.
type renderArgs struct {
	Scale        *float64 `json:"scale"`
	Contrast     *float64 `json:"contrast"`
	Gamma        *float64 `json:"gamma"`
	Colormap     []string `json:"colormap"`
	FlipVertical *bool    `json:"flip_vertical"`
}

func (s *Server) renderOptions(a renderArgs) imaging.RenderOptions {
	r := s.cfg.Render
	opts := imaging.RenderOptions{
		Scale:        r.Scale,
		Contrast:     r.Contrast,
		Gamma:        r.Gamma,
		Colormap:     r.Colormap,
		FlipVertical: r.FlipVertical,
	}
	if a.Scale != nil {
		opts.Scale = *a.Scale
	}
	if a.Contrast != nil {
		opts.Contrast = *a.Contrast
	}
	if a.Gamma != nil {
		opts.Gamma = *a.Gamma
	}
	if a.Colormap != nil {
		opts.Colormap = a.Colormap
	}
	if a.FlipVertical != nil {
		opts.FlipVertical = *a.FlipVertical
	}
	return opts
}

// === Container Information Handlers ===

// SniffResult reports whether a file is framed as PSI.
type SniffResult struct {
	Path        string `json:"path"`
	IsPSI       bool   `json:"is_psi"`
	Reason      string `json:"reason,omitempty"`
	Format      string `json:"format"`
	SuffixMatch bool   `json:"suffix_match"`
	SizeBytes   int64  `json:"size_bytes"`
}

func (s *Server) handleSniff(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	c, closer, err := cursor.Open(a.Path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	res := &SniffResult{
		Path:        a.Path,
		Format:      psi.Format.Name,
		SuffixMatch: psi.Format.HasSuffix(a.Path),
		SizeBytes:   c.Length(),
	}
	if err := psi.CheckFraming(c); err != nil {
		res.Reason = err.Error()
	} else {
		res.IsPSI = true
	}
	return res, nil
}

func (s *Server) handleInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.LoadSurveyInfo(s.cache, a.Path)
}

// MetadataTableResult lists header fields in file order.
type MetadataTableResult struct {
	Path    string          `json:"path"`
	Count   int             `json:"count"`
	Entries []psi.MetaEntry `json:"entries"`
}

func (s *Server) handleMetadataTable(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	rec, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	entries := rec.Table().Entries()
	return &MetadataTableResult{Path: a.Path, Count: len(entries), Entries: entries}, nil
}

// === Plane Operation Handlers ===

// ReadPlaneResult carries raw decoded samples.
type ReadPlaneResult struct {
	Image          string     `json:"image"`
	Region         psi.Region `json:"region"`
	BytesPerSample int        `json:"bytes_per_sample"`
	ByteOrder      string     `json:"byte_order"`
	DataBase64     string     `json:"data_base64"`
}

func (s *Server) handleReadPlane(args json.RawMessage) (interface{}, error) {
	var a planeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a)
	if err != nil {
		return nil, err
	}
	return &ReadPlaneResult{
		Image:          p.Layout.Image.String(),
		Region:         p.Region,
		BytesPerSample: p.Layout.BytesPerSample,
		ByteOrder:      "little-endian",
		DataBase64:     base64.StdEncoding.EncodeToString(p.Data),
	}, nil
}

type renderPlaneArgs struct {
	planeArgs
	renderArgs
}

func (s *Server) handleRenderPlane(args json.RawMessage) (interface{}, error) {
	var a renderPlaneArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return imaging.Render(p, s.renderOptions(a.renderArgs))
}

type planeStatsArgs struct {
	planeArgs
	IgnoreZero *bool `json:"ignore_zero"`
}

func (s *Server) handlePlaneStats(args json.RawMessage) (interface{}, error) {
	var a planeStatsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ignoreZero := true
	if a.IgnoreZero != nil {
		ignoreZero = *a.IgnoreZero
	}
	p, err := s.loadPlane(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return imaging.PlaneStats(p, ignoreZero)
}

type sampleValuesArgs struct {
	Path   string `json:"path"`
	Image  string `json:"image"`
	Points []struct {
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Label string `json:"label,omitempty"`
	} `json:"points"`
}

// handleSampleValues decodes only the bounding box of the points.
func (s *Server) handleSampleValues(args json.RawMessage) (interface{}, error) {
	var a sampleValuesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return &imaging.MultiSampleResult{Samples: []imaging.LabeledSampleResult{}}, nil
	}

	points := make([]imaging.LabeledPoint, len(a.Points))
	minX, minY := a.Points[0].X, a.Points[0].Y
	maxX, maxY := minX, minY
	for i, p := range a.Points {
		points[i] = imaging.LabeledPoint{X: p.X, Y: p.Y, Label: p.Label}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	bbox := psi.Region{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
	plane, err := s.loadPlane(planeArgs{Path: a.Path, Image: a.Image, Region: &bbox})
	if err != nil {
		return nil, err
	}
	return imaging.SampleValuesMulti(plane, points)
}

// === Measurement Operation Handlers ===

type measureDistanceArgs struct {
	Path  string `json:"path"`
	Image string `json:"image"`
	X1    int    `json:"x1"`
	Y1    int    `json:"y1"`
	X2    int    `json:"x2"`
	Y2    int    `json:"y2"`
}

func (s *Server) handleMeasureDistance(args json.RawMessage) (interface{}, error) {
	var a measureDistanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sel, err := planeArgs{Image: a.Image}.selector()
	if err != nil {
		return nil, err
	}
	rec, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	layout, err := rec.Layout(sel)
	if err != nil {
		return nil, err
	}
	return imaging.MeasureDistance(layout, a.X1, a.Y1, a.X2, a.Y2)
}

type gridOverlayArgs struct {
	planeArgs
	renderArgs
	GridSpacingMM   float64 `json:"grid_spacing_mm"`
	ShowCoordinates *bool   `json:"show_coordinates"`
	GridColor       string  `json:"grid_color"`
}

func (s *Server) handleGridOverlay(args json.RawMessage) (interface{}, error) {
	var a gridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.GridSpacingMM == 0 {
		a.GridSpacingMM = 500
	}
	if a.GridColor == "" {
		a.GridColor = "#FF000080"
	}
	show := true
	if a.ShowCoordinates != nil {
		show = *a.ShowCoordinates
	}
	p, err := s.loadPlane(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return imaging.GridOverlay(p, s.renderOptions(a.renderArgs), a.GridSpacingMM, show, a.GridColor)
}

// === Feature Detection Handlers ===

type edgeDetectArgs struct {
	planeArgs
	ThresholdLow  int `json:"threshold_low"`
	ThresholdHigh int `json:"threshold_high"`
}

func (s *Server) handleEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a edgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = 50
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = 150
	}
	p, err := s.loadPlane(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(p, a.ThresholdLow, a.ThresholdHigh)
}

// detectionInput renders a plane as plain grayscale in image coordinates
// for the detectors.
func (s *Server) detectionInput(a planeArgs) (image.Image, detection.Scale, error) {
	p, err := s.loadPlane(a)
	if err != nil {
		return nil, detection.Scale{}, err
	}
	img, err := imaging.RenderImage(p, imaging.RenderOptions{})
	if err != nil {
		return nil, detection.Scale{}, err
	}
	return img, detection.ScaleOf(p.Layout), nil
}

type detectLinesArgs struct {
	planeArgs
	MinLength int `json:"min_length"`
}

func (s *Server) handleDetectLines(args json.RawMessage) (interface{}, error) {
	var a detectLinesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinLength == 0 {
		a.MinLength = 20
	}
	img, scale, err := s.detectionInput(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return detection.DetectLines(img, a.MinLength, scale)
}

type detectPatchesArgs struct {
	planeArgs
	MinArea   int     `json:"min_area"`
	Tolerance float64 `json:"tolerance"`
}

func (s *Server) handleDetectPatches(args json.RawMessage) (interface{}, error) {
	var a detectPatchesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinArea == 0 {
		a.MinArea = 100
	}
	if a.Tolerance == 0 {
		a.Tolerance = 0.9
	}
	img, scale, err := s.detectionInput(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return detection.DetectPatches(img, a.MinArea, a.Tolerance, scale)
}

type detectCoversArgs struct {
	planeArgs
	MinRadius int `json:"min_radius"`
	MaxRadius int `json:"max_radius"`
}

func (s *Server) handleDetectCovers(args json.RawMessage) (interface{}, error) {
	var a detectCoversArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinRadius == 0 {
		a.MinRadius = 5
	}
	if a.MaxRadius == 0 {
		a.MaxRadius = 100
	}
	if a.MinRadius > a.MaxRadius {
		return nil, fmt.Errorf("min_radius %d above max_radius %d", a.MinRadius, a.MaxRadius)
	}
	img, scale, err := s.detectionInput(a.planeArgs)
	if err != nil {
		return nil, err
	}
	return detection.DetectCovers(img, a.MinRadius, a.MaxRadius, scale)
}

// === Analysis Helper Handlers ===

type compareRegionsArgs struct {
	Path      string      `json:"path"`
	Image     string      `json:"image"`
	Region1   *psi.Region `json:"region1"`
	Region2   *psi.Region `json:"region2"`
	Threshold *float64    `json:"threshold"`
}

func (s *Server) handleCompareRegions(args json.RawMessage) (interface{}, error) {
	var a compareRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Region1 == nil || a.Region2 == nil {
		return nil, errors.New("region1 and region2 are required")
	}
	threshold := 10.0
	if a.Threshold != nil {
		threshold = *a.Threshold
	}

	p1, err := s.loadPlane(planeArgs{Path: a.Path, Image: a.Image, Region: a.Region1})
	if err != nil {
		return nil, fmt.Errorf("region1: %w", err)
	}
	p2, err := s.loadPlane(planeArgs{Path: a.Path, Image: a.Image, Region: a.Region2})
	if err != nil {
		return nil, fmt.Errorf("region2: %w", err)
	}
	return imaging.CompareRegions(p1, p2, threshold)
}

// === Catalog Handlers ===

func (s *Server) handleCatalogAdd(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	cat, err := s.openCatalog()
	if err != nil {
		return nil, err
	}
	rec, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return cat.Add(ctx, a.Path, rec)
}

type catalogQueryArgs struct {
	Route string `json:"route"`
	State string `json:"state"`
	Lane  *int   `json:"lane"`
	Limit int    `json:"limit"`
}

// CatalogQueryResult lists matching surveys.
type CatalogQueryResult struct {
	Surveys []*catalog.Entry `json:"surveys"`
	Count   int              `json:"count"`
}

func (s *Server) handleCatalogQuery(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a catalogQueryArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	if a.Limit == 0 {
		a.Limit = 100
	}
	cat, err := s.openCatalog()
	if err != nil {
		return nil, err
	}
	entries, err := cat.Query(ctx, catalog.Filter{Route: a.Route, State: a.State, Lane: a.Lane, Limit: a.Limit})
	if err != nil {
		return nil, err
	}
	return &CatalogQueryResult{Surveys: entries, Count: len(entries)}, nil
}

type catalogMetadataArgs struct {
	ID string `json:"id"`
}

// CatalogMetadataResult is the stored metadata table of one survey.
type CatalogMetadataResult struct {
	ID      string          `json:"id"`
	Count   int             `json:"count"`
	Entries []psi.MetaEntry `json:"entries"`
}

func (s *Server) handleCatalogMetadata(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a catalogMetadataArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, errors.New("id is required")
	}
	cat, err := s.openCatalog()
	if err != nil {
		return nil, err
	}
	entries, err := cat.Metadata(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &CatalogMetadataResult{ID: a.ID, Count: len(entries), Entries: entries}, nil
}
