package psi

import "fmt"

// Region is a rectangular window of a plane. X and Width run across the
// image (transverse), Y and Height along it (longitudinal).
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the region covers no samples.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether sample (x, y) lies inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Intersects reports whether the two regions share at least one sample.
func (r Region) Intersects(o Region) bool {
	return !r.Intersection(o).Empty()
}

// Intersection returns the overlap of r and o, or the zero Region when they
// do not overlap.
func (r Region) Intersection(o Region) Region {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.Width, o.X+o.Width), min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Region{}
	}
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Within reports whether r is non-empty and lies inside a width x length
// raster.
func (r Region) Within(width, length int) bool {
	return !r.Empty() && r.X >= 0 && r.Y >= 0 &&
		r.Width <= width-r.X && r.Height <= length-r.Y
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)+%dx%d", r.X, r.Y, r.Width, r.Height)
}
