package imaging

import (
	"math"
	"testing"
)

// squarePlane has a raised square in the middle of a flat 3D plane.
func squarePlane(size int) *Plane {
	return newPlane3D(size, size, func(x, y int) uint16 {
		if x >= size/4 && x < 3*size/4 && y >= size/4 && y < 3*size/4 {
			return 4000
		}
		return 1000
	})
}

func TestEdgeDetect(t *testing.T) {
	result, err := EdgeDetect(squarePlane(40), 50, 150)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}
	if result.Width != 40 || result.Height != 40 {
		t.Errorf("dimensions: got %dx%d, want 40x40", result.Width, result.Height)
	}
	if result.EdgeCount == 0 {
		t.Fatal("expected edges around the square")
	}

	img := decodePNG(t, result.ImageBase64)
	if r, _, _ := rgb8(img, 2, 2); r != 0 {
		t.Errorf("flat corner should have no edge, got %d", r)
	}

	found := false
	for x := 8; x <= 12 && !found; x++ {
		if r, _, _ := rgb8(img, x, 20); r == 255 {
			found = true
		}
	}
	if !found {
		t.Error("expected an edge near the left side of the square")
	}
}

func TestEdgeDetect_UniformPlane(t *testing.T) {
	p := newPlane2D(30, 30, solid2D(90))

	result, err := EdgeDetect(p, 50, 150)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}
	if result.EdgeCount != 0 || result.EdgeDensity != 0 {
		t.Errorf("uniform plane: got %d edges", result.EdgeCount)
	}
}

func TestEdgeDetect_Thresholds(t *testing.T) {
	loose, err := EdgeDetect(squarePlane(40), 10, 30)
	if err != nil {
		t.Fatal(err)
	}
	strict, err := EdgeDetect(squarePlane(40), 200, 250)
	if err != nil {
		t.Fatal(err)
	}
	if loose.EdgeCount < strict.EdgeCount {
		t.Errorf("lower thresholds should keep at least as many edges: %d < %d", loose.EdgeCount, strict.EdgeCount)
	}

	if _, err := EdgeDetect(squarePlane(10), 150, 50); err == nil {
		t.Error("expected error when low threshold exceeds high")
	}
}

func TestEdgeDetect_SmallPlane(t *testing.T) {
	result, err := EdgeDetect(newPlane2D(3, 3, solid2D(0)), 50, 150)
	if err != nil {
		t.Fatalf("EdgeDetect on 3x3 failed: %v", err)
	}
	if result.Width != 3 || result.Height != 3 {
		t.Errorf("dimensions: got %dx%d, want 3x3", result.Width, result.Height)
	}
}

func TestEdgeDetect_Dropouts(t *testing.T) {
	// Flat road with a block of missing range samples
	p := newPlane3D(40, 40, func(x, y int) uint16 {
		if x >= 15 && x < 21 && y >= 15 && y < 21 {
			return 0
		}
		return 1000
	})

	result, err := EdgeDetect(p, 50, 150)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}
	if result.DropoutCount != 36 {
		t.Errorf("DropoutCount: got %d, want 36", result.DropoutCount)
	}
	if result.EdgeCount != 0 {
		t.Errorf("dropouts should not produce edges, got %d", result.EdgeCount)
	}
}

func TestEdgeDetect_ZeroIntensityIsData(t *testing.T) {
	// On 2D planes a zero is a black sample, not a dropout
	p := newPlane2D(40, 40, func(x, y int) uint8 {
		if x >= 10 && x < 30 && y >= 10 && y < 30 {
			return 0
		}
		return 200
	})

	result, err := EdgeDetect(p, 50, 150)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}
	if result.DropoutCount != 0 {
		t.Errorf("2D planes have no dropouts, got %d", result.DropoutCount)
	}
	if result.EdgeCount == 0 {
		t.Error("expected edges around the dark square")
	}
}

func uniformGrid(w, h int, v float64) *grid {
	g := newGrid(w, h)
	for i := range g.v {
		g.v[i] = v
	}
	return g
}

func TestGaussianBlur(t *testing.T) {
	blurred := gaussianBlur(uniformGrid(10, 10, 0.5))

	// Uniform input stays uniform
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if d := blurred.at(x, y) - 0.5; d > 0.01 || d < -0.01 {
				t.Errorf("blurred(%d,%d): got %.3f, want ~0.5", x, y, blurred.at(x, y))
			}
		}
	}
}

func TestGaussianBlur_WithSpot(t *testing.T) {
	g := newGrid(11, 11)
	g.set(5, 5, 1.0)

	blurred := gaussianBlur(g)

	if blurred.at(5, 5) >= 1.0 {
		t.Error("bright spot should be reduced after blur")
	}
	if blurred.at(4, 5) == 0 || blurred.at(6, 5) == 0 || blurred.at(5, 4) == 0 || blurred.at(5, 6) == 0 {
		t.Error("neighbors should receive some brightness from blur")
	}
	if blurred.at(4, 5) != blurred.at(6, 5) || blurred.at(5, 4) != blurred.at(5, 6) {
		t.Error("blur should be symmetric")
	}
}

func TestGrid_ReplicatesBorder(t *testing.T) {
	g := newGrid(3, 2)
	g.set(0, 0, 1)
	g.set(2, 1, 7)

	if g.at(-5, -1) != 1 {
		t.Errorf("at(-5,-1): got %v, want 1", g.at(-5, -1))
	}
	if g.at(9, 4) != 7 {
		t.Errorf("at(9,4): got %v, want 7", g.at(9, 4))
	}
}

func TestNeighbourStep(t *testing.T) {
	tests := []struct {
		angle  float64
		dx, dy int
	}{
		{0, 1, 0},
		{math.Pi, 1, 0},
		{math.Pi / 4, 1, 1},
		{-3 * math.Pi / 4, 1, 1},
		{math.Pi / 2, 0, 1},
		{-math.Pi / 2, 0, 1},
		{3 * math.Pi / 4, -1, 1},
	}
	for _, tt := range tests {
		dx, dy := neighbourStep(tt.angle)
		if dx != tt.dx || dy != tt.dy {
			t.Errorf("neighbourStep(%.3f): got (%d,%d), want (%d,%d)", tt.angle, dx, dy, tt.dx, tt.dy)
		}
	}
}

func TestHysteresis(t *testing.T) {
	// A weak run attached to a strong seed, and an isolated weak sample
	g := newGrid(7, 1)
	copy(g.v, []float64{0.9, 0.3, 0.3, 0, 0.3, 0, 0})

	edges := hysteresis(g, 0.2, 0.8)
	want := []bool{true, true, true, false, false, false, false}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d: got %v, want %v", i, edges[i], want[i])
		}
	}
}

func TestDilate(t *testing.T) {
	mask := make([]bool, 25)
	mask[12] = true // (2,2)

	out := dilate(mask, 5, 5, 1)
	count := 0
	for _, m := range out {
		if m {
			count++
		}
	}
	if count != 9 {
		t.Errorf("dilated cells: got %d, want 9", count)
	}
	if out[0] || !out[6] || !out[18] {
		t.Error("dilation should cover only the 3x3 neighbourhood")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{15, 0, 10, 10},
		{10, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
