package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatchImage creates a white image with a filled dark rectangle
func createPatchImage(width, height int, x1, y1, x2, y2 int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y, color.Gray{Y: 40})
		}
	}
	return img
}

// createCoverImage creates an image with a filled dark disc
func createCoverImage(width, height, cx, cy, radius int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestScaleOf(t *testing.T) {
	s := ScaleOf(psi.PlaneLayout{TransverseResolution: 1.5, LongitudinalResolution: 2})
	if s.TransverseMM != 1.5 || s.LongitudinalMM != 2 {
		t.Errorf("ScaleOf: got %+v", s)
	}

	// Unset scale treats samples as 1 mm square
	x, y := Scale{}.mm(3, 4)
	if x != 3 || y != 4 {
		t.Errorf("zero scale mm: got (%v, %v), want (3, 4)", x, y)
	}
	x, y = Scale{TransverseMM: 2, LongitudinalMM: 5}.mm(3, 4)
	if x != 6 || y != 20 {
		t.Errorf("scale mm: got (%v, %v), want (6, 20)", x, y)
	}
}

func TestDetectPatches(t *testing.T) {
	img := createPatchImage(100, 100, 20, 20, 80, 80)

	result, err := DetectPatches(img, 100, 0.5, Scale{TransverseMM: 2, LongitudinalMM: 5})
	if err != nil {
		t.Fatalf("DetectPatches failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("Expected 1 patch, got %d", result.Count)
	}

	p := result.Patches[0]
	if p.Width != 61 || p.Height != 61 {
		t.Errorf("Patch size: got %dx%d, want 61x61", p.Width, p.Height)
	}
	if p.WidthMM != 122 || p.LengthMM != 305 {
		t.Errorf("Patch mm: got %v x %v, want 122 x 305", p.WidthMM, p.LengthMM)
	}
	if p.AreaM2 != 0.0372 {
		t.Errorf("Patch area: got %v m², want 0.0372", p.AreaM2)
	}
	if p.Confidence < 0.9 {
		t.Errorf("Filled rectangle should score high, got %v", p.Confidence)
	}
	if p.CenterIntensity > 100 {
		t.Errorf("Center intensity: got %d, want dark", p.CenterIntensity)
	}
}

func TestDetectPatches_OffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(100, 200, 200, 300))
	for y := 200; y < 300; y++ {
		for x := 100; x < 200; x++ {
			v := uint8(255)
			if x >= 130 && x <= 170 && y >= 230 && y <= 270 {
				v = 20
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	result, err := DetectPatches(img, 100, 0.5, Scale{})
	if err != nil {
		t.Fatalf("DetectPatches failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("Expected 1 patch, got %d", result.Count)
	}

	b := result.Patches[0].Bounds
	if b.X1 != 129 || b.Y1 != 229 || b.X2 != 170 || b.Y2 != 270 {
		t.Errorf("Bounds should be in image coordinates, got %+v", b)
	}
}

func TestDetectPatches_MinArea(t *testing.T) {
	img := createPatchImage(100, 100, 40, 40, 50, 50)

	result, err := DetectPatches(img, 1000, 0.5, Scale{})
	if err != nil {
		t.Fatalf("DetectPatches failed: %v", err)
	}
	if result.Count != 0 {
		t.Errorf("11x11 patch should be below minArea, got %d", result.Count)
	}
}

func TestDetectPatches_Tolerance(t *testing.T) {
	img := createPatchImage(100, 100, 20, 20, 80, 80)

	// The outline is one sample short of a perfect perimeter
	loose, _ := DetectPatches(img, 100, 0.5, Scale{})
	strict, _ := DetectPatches(img, 100, 1.0, Scale{})

	if loose.Count != 1 || strict.Count != 0 {
		t.Errorf("Tolerance: got %d at 0.5 and %d at 1.0, want 1 and 0", loose.Count, strict.Count)
	}
}

func TestDetectPatches_EmptyImage(t *testing.T) {
	img := createTestImage(100, 100, color.White)

	result, err := DetectPatches(img, 100, 0.5, Scale{})
	if err != nil {
		t.Fatalf("DetectPatches failed: %v", err)
	}

	if result.Count != 0 {
		t.Errorf("Expected 0 patches in empty image, got %d", result.Count)
	}
}

func TestDetectPatches_SortedByArea(t *testing.T) {
	img := createTestImage(200, 200, color.White)
	for y := 10; y <= 30; y++ {
		for x := 10; x <= 30; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for y := 50; y <= 150; y++ {
		for x := 50; x <= 150; x++ {
			img.Set(x, y, color.Black)
		}
	}

	result, _ := DetectPatches(img, 100, 0.5, Scale{})

	if result.Count != 2 {
		t.Fatalf("Expected 2 patches, got %d", result.Count)
	}
	if result.Patches[0].Area < result.Patches[1].Area {
		t.Error("Patches should be sorted by area (largest first)")
	}
}

func TestDetectCovers(t *testing.T) {
	img := createCoverImage(100, 100, 50, 50, 20)

	result, err := DetectCovers(img, 15, 25, Scale{TransverseMM: 4, LongitudinalMM: 4})
	if err != nil {
		t.Fatalf("DetectCovers failed: %v", err)
	}

	// Vote counts depend on edge sampling, so only check consistency.
	t.Logf("Detected %d covers", result.Count)
	for _, c := range result.Covers {
		if c.Radius < 15 || c.Radius > 25 {
			t.Errorf("Cover radius %d outside [15,25]", c.Radius)
		}
		if c.DiameterMM != float64(8*c.Radius) {
			t.Errorf("Cover diameter: got %v mm for radius %d", c.DiameterMM, c.Radius)
		}
		if c.Confidence > 1 {
			t.Errorf("Confidence should be capped at 1, got %v", c.Confidence)
		}
	}
}

func TestDetectCovers_EmptyImage(t *testing.T) {
	img := createTestImage(100, 100, color.White)

	result, err := DetectCovers(img, 5, 50, Scale{})
	if err != nil {
		t.Fatalf("DetectCovers failed: %v", err)
	}

	if result.Count != 0 {
		t.Errorf("Expected 0 covers in empty image, got %d", result.Count)
	}
}

func TestDetectEdges(t *testing.T) {
	// Create image with a vertical edge
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			if x < 25 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	edges := detectEdges(img, 50, 50)

	for y := 1; y < 49; y++ {
		if !edges[y][24] {
			t.Fatalf("Expected edge at (24,%d)", y)
		}
		if edges[y][10] || edges[y][40] {
			t.Fatalf("Unexpected edge away from the boundary on row %d", y)
		}
	}
	if edges[0][24] || edges[49][24] {
		t.Error("Border samples should never be edges")
	}
}

func TestDetectEdges_UniformImage(t *testing.T) {
	img := createTestImage(50, 50, color.RGBA{128, 128, 128, 255})

	edges := detectEdges(img, 50, 50)

	edgeCount := 0
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			if edges[y][x] {
				edgeCount++
			}
		}
	}

	if edgeCount != 0 {
		t.Errorf("Uniform image should have 0 edges, got %d", edgeCount)
	}
}

func TestFindContours(t *testing.T) {
	edges := make([][]bool, 20)
	for y := 0; y < 20; y++ {
		edges[y] = make([]bool, 20)
	}

	for x := 5; x <= 15; x++ {
		edges[5][x] = true
		edges[15][x] = true
	}
	for y := 5; y <= 15; y++ {
		edges[y][5] = true
		edges[y][15] = true
	}
	// Isolated specks are noise
	edges[1][1] = true
	edges[18][18] = true

	contours := findContours(edges, 20, 20)

	if len(contours) != 1 {
		t.Fatalf("Expected 1 contour, got %d", len(contours))
	}
	if len(contours[0]) != 40 {
		t.Errorf("Expected 40 points in square outline, got %d", len(contours[0]))
	}
}

func TestFloodFill(t *testing.T) {
	edges := make([][]bool, 10)
	visited := make([][]bool, 10)
	for y := 0; y < 10; y++ {
		edges[y] = make([]bool, 10)
		visited[y] = make([]bool, 10)
	}

	edges[5][5] = true
	edges[5][6] = true
	edges[6][5] = true
	edges[6][6] = true

	var contour []Point
	floodFill(edges, visited, 5, 5, 10, 10, &contour)

	if len(contour) != 4 {
		t.Errorf("Expected 4 points in contour, got %d", len(contour))
	}
	if !visited[5][5] || !visited[5][6] || !visited[6][5] || !visited[6][6] {
		t.Error("Flood fill should mark all visited points")
	}
}

func TestGrayValue(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(5, 5, color.RGBA{255, 0, 0, 255})
	img.Set(6, 5, color.RGBA{0, 255, 0, 255})
	img.Set(7, 5, color.RGBA{0, 0, 255, 255})

	// Red: 0.299*255 = 76.2
	if g := grayValue(img, 5, 5); g < 70 || g > 85 {
		t.Errorf("Red gray value: got %d, expected ~76", g)
	}
	// Green: 0.587*255 = 149.7
	if g := grayValue(img, 6, 5); g < 140 || g > 160 {
		t.Errorf("Green gray value: got %d, expected ~150", g)
	}
	// Blue: 0.114*255 = 29.1
	if g := grayValue(img, 7, 5); g < 25 || g > 35 {
		t.Errorf("Blue gray value: got %d, expected ~29", g)
	}
}

func TestFilterDuplicateCovers(t *testing.T) {
	covers := []Cover{
		{Center: Point{X: 50, Y: 50}, Radius: 20, Confidence: 0.9},
		{Center: Point{X: 52, Y: 51}, Radius: 20, Confidence: 0.8},
		{Center: Point{X: 100, Y: 100}, Radius: 15, Confidence: 0.7},
	}

	filtered := filterDuplicateCovers(covers)

	if len(filtered) != 2 {
		t.Fatalf("Expected 2 covers after filtering, got %d", len(filtered))
	}
	if filtered[0].Confidence != 0.9 {
		t.Error("The first of a duplicate pair should be kept")
	}

	if got := filterDuplicateCovers(nil); len(got) != 0 {
		t.Errorf("Expected 0 covers, got %d", len(got))
	}
}

func TestLocalMax(t *testing.T) {
	acc := [][]int{
		{1, 2, 1},
		{2, 5, 2},
		{1, 2, 9},
	}
	if localMax(acc, 1, 1, 1) {
		t.Error("Center is exceeded by a neighbour")
	}
	if !localMax(acc, 2, 2, 1) {
		t.Error("Corner peak should be a local maximum")
	}
}

func TestRound(t *testing.T) {
	if got := round(math.Pi, 3); got != 3.142 {
		t.Errorf("round: got %v, want 3.142", got)
	}
}
