package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// Bounds is a bounding box in image sample coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Point represents a 2D coordinate in sample space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Scale converts sample distances to millimetres.
type Scale struct {
	TransverseMM   float64 // millimetres per sample across the lane (X)
	LongitudinalMM float64 // millimetres per sample along the lane (Y)
}

// ScaleOf returns the scale of a plane layout.
func ScaleOf(l psi.PlaneLayout) Scale {
	return Scale{TransverseMM: l.TransverseResolution, LongitudinalMM: l.LongitudinalResolution}
}

// valid reports whether both resolutions are usable; an invalid scale
// treats samples as 1 mm square.
func (s Scale) valid() bool { return s.TransverseMM > 0 && s.LongitudinalMM > 0 }

func (s Scale) mm(dx, dy float64) (float64, float64) {
	if !s.valid() {
		return dx, dy
	}
	return dx * s.TransverseMM, dy * s.LongitudinalMM
}

// Patch is a rectangular repair or slab found on a plane.
type Patch struct {
	Bounds Bounds `json:"bounds"`
	Center Point  `json:"center"`

	// Extent in samples.
	Width  int `json:"width"`
	Height int `json:"height"`
	Area   int `json:"area"`

	// Extent in physical units.
	WidthMM  float64 `json:"width_mm"`
	LengthMM float64 `json:"length_mm"`
	AreaM2   float64 `json:"area_m2"`

	// CenterIntensity is the gray level at the center of the patch.
	CenterIntensity uint8 `json:"center_intensity"`

	// Confidence indicates how rectangular the outline is (0.0 to 1.0),
	// from comparing contour length to the expected perimeter.
	Confidence float64 `json:"confidence"`
}

// PatchesResult lists patches sorted by area, largest first.
type PatchesResult struct {
	Patches []Patch `json:"patches"`
	Count   int     `json:"count"`
}

// DetectPatches finds axis-aligned rectangular outlines, the usual shape
// of full-depth repairs, slab replacements and utility cuts.
//
// minArea is in square samples; tolerance (0.0 to 1.0) is the minimum
// rectangularity score.
//
// # Algorithm
//
//  1. Gradient threshold edge map
//  2. 8-connected contours by flood fill
//  3. Bounding box of each contour
//  4. Score = 1 - |contour length - 2*(w+h)| / 2*(w+h)
//  5. Drop contours below minArea or tolerance
func DetectPatches(img image.Image, minArea int, tolerance float64, scale Scale) (*PatchesResult, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := detectEdges(img, width, height)
	contours := findContours(edges, width, height)

	patches := make([]Patch, 0)

	for _, contour := range contours {
		if len(contour) < 4 {
			continue
		}

		minX, minY := width, height
		maxX, maxY := 0, 0
		for _, p := range contour {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}

		rectWidth := maxX - minX
		rectHeight := maxY - minY
		area := rectWidth * rectHeight
		if area < minArea || area == 0 {
			continue
		}

		expectedPerimeter := 2 * (rectWidth + rectHeight)
		rectangularity := 1.0 - math.Abs(float64(len(contour)-expectedPerimeter))/float64(expectedPerimeter)
		if rectangularity < tolerance {
			continue
		}

		centerX := (minX + maxX) / 2
		centerY := (minY + maxY) / 2
		wmm, lmm := scale.mm(float64(rectWidth), float64(rectHeight))

		patches = append(patches, Patch{
			Bounds: Bounds{
				X1: minX + bounds.Min.X,
				Y1: minY + bounds.Min.Y,
				X2: maxX + bounds.Min.X,
				Y2: maxY + bounds.Min.Y,
			},
			Center: Point{
				X: centerX + bounds.Min.X,
				Y: centerY + bounds.Min.Y,
			},
			Width:           rectWidth,
			Height:          rectHeight,
			Area:            area,
			WidthMM:         round(wmm, 1),
			LengthMM:        round(lmm, 1),
			AreaM2:          round(wmm*lmm/1e6, 4),
			CenterIntensity: grayValue(img, centerX+bounds.Min.X, centerY+bounds.Min.Y),
			Confidence:      round(rectangularity, 3),
		})
	}

	sort.Slice(patches, func(i, j int) bool {
		return patches[i].Area > patches[j].Area
	})

	return &PatchesResult{
		Patches: patches,
		Count:   len(patches),
	}, nil
}

// Cover is a circular utility cover (manhole, valve box) found on a plane.
type Cover struct {
	Center     Point   `json:"center"`
	Radius     int     `json:"radius"`
	DiameterMM float64 `json:"diameter_mm"`

	CenterIntensity uint8 `json:"center_intensity"`

	// Confidence is votes / (2 * radius), capped at 1.0.
	Confidence float64 `json:"confidence"`
}

// CoversResult lists covers sorted by confidence, highest first.
type CoversResult struct {
	Covers []Cover `json:"covers"`
	Count  int     `json:"count"`
}

// DetectCovers finds circular outlines with a radius between minRadius
// and maxRadius samples using a Hough circle transform. Samples are
// assumed square; on strongly anisotropic planes covers appear as
// ellipses and are missed.
//
// Each edge sample votes for centers every 10 degrees around it; local
// maxima reaching 60% of the expected circumference are kept and
// near-duplicate centers merged.
func DetectCovers(img image.Image, minRadius, maxRadius int, scale Scale) (*CoversResult, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := detectEdges(img, width, height)
	covers := make([]Cover, 0)

	for radius := max(minRadius, 1); radius <= maxRadius; radius++ {
		accumulator := make([][]int, height)
		for y := range accumulator {
			accumulator[y] = make([]int, width)
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !edges[y][x] {
					continue
				}
				for angle := 0; angle < 360; angle += 10 {
					rad := float64(angle) * math.Pi / 180
					cx := x - int(float64(radius)*math.Cos(rad))
					cy := y - int(float64(radius)*math.Sin(rad))
					if cx >= 0 && cx < width && cy >= 0 && cy < height {
						accumulator[cy][cx]++
					}
				}
			}
		}

		threshold := int(float64(2*radius) * 0.6)
		for y := radius; y < height-radius; y++ {
			for x := radius; x < width-radius; x++ {
				if accumulator[y][x] < threshold || !localMax(accumulator, x, y, 5) {
					continue
				}
				dmm, _ := scale.mm(float64(2*radius), 0)
				covers = append(covers, Cover{
					Center:          Point{X: x + bounds.Min.X, Y: y + bounds.Min.Y},
					Radius:          radius,
					DiameterMM:      round(dmm, 1),
					CenterIntensity: grayValue(img, x+bounds.Min.X, y+bounds.Min.Y),
					Confidence:      math.Min(float64(accumulator[y][x])/float64(2*radius), 1.0),
				})
			}
		}
	}

	filtered := filterDuplicateCovers(covers)
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})

	return &CoversResult{
		Covers: filtered,
		Count:  len(filtered),
	}, nil
}

// localMax reports whether acc[y][x] is not exceeded within r cells.
func localMax(acc [][]int, x, y, r int) bool {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			ny, nx := y+dy, x+dx
			if (dx == 0 && dy == 0) || ny < 0 || ny >= len(acc) || nx < 0 || nx >= len(acc[ny]) {
				continue
			}
			if acc[ny][nx] > acc[y][x] {
				return false
			}
		}
	}
	return true
}

// detectEdges marks samples whose gray level differs from the right or
// lower neighbour by more than 30. Border samples are never edges.
func detectEdges(img image.Image, width, height int) [][]bool {
	bounds := img.Bounds()
	edges := make([][]bool, height)
	threshold := 30.0

	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				continue
			}

			c := grayValue(img, x+bounds.Min.X, y+bounds.Min.Y)
			cx := grayValue(img, x+1+bounds.Min.X, y+bounds.Min.Y)
			cy := grayValue(img, x+bounds.Min.X, y+1+bounds.Min.Y)

			dx := math.Abs(float64(c) - float64(cx))
			dy := math.Abs(float64(c) - float64(cy))

			if dx > threshold || dy > threshold {
				edges[y][x] = true
			}
		}
	}

	return edges
}

// findContours groups 8-connected edge samples. Groups under 10 samples
// are noise.
func findContours(edges [][]bool, width, height int) [][]Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]Point, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := make([]Point, 0)
				floodFill(edges, visited, x, y, width, height, &contour)
				if len(contour) >= 10 {
					contours = append(contours, contour)
				}
			}
		}
	}

	return contours
}

// floodFill collects the 8-connected edge component at (startX, startY)
// with an explicit stack.
func floodFill(edges, visited [][]bool, startX, startY, width, height int, contour *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*contour = append(*contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// grayValue converts a pixel to grayscale using ITU-R BT.601 luminance weights.
func grayValue(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8((float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114))
}

// filterDuplicateCovers keeps the first of any covers whose centers are
// closer than their mean radius.
func filterDuplicateCovers(covers []Cover) []Cover {
	filtered := make([]Cover, 0, len(covers))
	for _, c := range covers {
		isDuplicate := false
		for _, f := range filtered {
			dx := c.Center.X - f.Center.X
			dy := c.Center.Y - f.Center.Y
			if math.Hypot(float64(dx), float64(dy)) < float64(c.Radius+f.Radius)/2 {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
