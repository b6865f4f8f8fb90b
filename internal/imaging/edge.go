package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// EdgeDetectResult contains an edge map of a plane encoded as base64 PNG.
//
// White pixels (255) mark edges: crack walls, joint faces, patch borders
// and marking outlines.
type EdgeDetectResult struct {
	Region       psi.Region `json:"region"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	EdgeCount    int        `json:"edge_count"`
	EdgeDensity  float64    `json:"edge_density"`
	DropoutCount int        `json:"dropout_count"`
	ImageBase64  string     `json:"image_base64"`
	MimeType     string     `json:"mime_type"`
}

// dropoutMargin is how far from a 3D dropout an edge is still treated as
// an artefact of the fill. It covers the blur and Sobel footprints.
const dropoutMargin = 2

// EdgeDetect runs Canny edge detection on the samples of a plane.
//
// Samples are stretched to [0,1] over the plane's own range, so the
// thresholds (0-255) mean the same thing for 8-bit intensity and 16-bit
// range planes. On 3D planes zero samples are sensor dropouts: they are
// left out of the stretch, filled with the mean of the valid samples,
// and edges near them are dropped.
//
// # Algorithm
//
//  1. Range stretch and dropout fill
//  2. 5x5 Gaussian blur
//  3. Sobel gradients, magnitude and direction
//  4. Non-maximum suppression along the gradient direction
//  5. Hysteresis: samples above thresholdHigh seed edges, which grow
//     through 8-connected samples above thresholdLow
//
// On range planes a low threshold near 20 picks up crack walls; intensity
// planes usually need 50/150.
func EdgeDetect(p *Plane, thresholdLow, thresholdHigh int) (*EdgeDetectResult, error) {
	if thresholdLow > thresholdHigh {
		return nil, fmt.Errorf("low threshold %d above high threshold %d", thresholdLow, thresholdHigh)
	}

	in, dropouts, nDropouts := edgeInput(p)
	mag, dir := sobel(gaussianBlur(in))
	thin := suppress(mag, dir)
	edges := hysteresis(thin, float64(thresholdLow)/255, float64(thresholdHigh)/255)

	width, height := in.w, in.h
	near := dilate(dropouts, width, height, dropoutMargin)

	result := image.NewGray(image.Rect(0, 0, width, height))
	count := 0
	for i, e := range edges {
		if !e || near[i] {
			continue
		}
		result.Pix[i] = 255
		count++
	}

	b64, err := encodePNG(result)
	if err != nil {
		return nil, err
	}

	return &EdgeDetectResult{
		Region:       p.Region,
		Width:        width,
		Height:       height,
		EdgeCount:    count,
		EdgeDensity:  round(float64(count)/float64(width*height), 4),
		DropoutCount: nDropouts,
		ImageBase64:  b64,
		MimeType:     "image/png",
	}, nil
}

// grid is a row-major float field the size of a plane region. Reads
// outside it replicate the border.
type grid struct {
	w, h int
	v    []float64
}

func newGrid(w, h int) *grid {
	return &grid{w: w, h: h, v: make([]float64, w*h)}
}

func (g *grid) at(x, y int) float64 {
	return g.v[clamp(y, 0, g.h-1)*g.w+clamp(x, 0, g.w-1)]
}

func (g *grid) set(x, y int, v float64) { g.v[y*g.w+x] = v }

// edgeInput stretches the plane to [0,1] and marks 3D dropouts.
func edgeInput(p *Plane) (*grid, []bool, int) {
	w, h := p.Region.Width, p.Region.Height
	g := newGrid(w, h)
	mask := make([]bool, w*h)
	skipZero := p.Layout.Image == psi.Image3D

	lo, hi := math.Inf(1), math.Inf(-1)
	dropouts := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(p.at(x, y))
			if skipZero && v == 0 {
				mask[y*w+x] = true
				dropouts++
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	if dropouts == w*h || span <= 0 {
		return g, mask, dropouts
	}

	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				continue
			}
			v := (float64(p.at(x, y)) - lo) / span
			g.set(x, y, v)
			sum += v
		}
	}
	fill := sum / float64(w*h-dropouts)
	for i, m := range mask {
		if m {
			g.v[i] = fill
		}
	}
	return g, mask, dropouts
}

// gaussian5 is the 5x5 kernel for sigma ≈ 1.4; its entries sum to 273.
var gaussian5 = [5][5]float64{
	{1, 4, 7, 4, 1},
	{4, 16, 26, 16, 4},
	{7, 26, 41, 26, 7},
	{4, 16, 26, 16, 4},
	{1, 4, 7, 4, 1},
}

// gaussianBlur applies the 5x5 Gaussian kernel with replicated borders.
func gaussianBlur(g *grid) *grid {
	out := newGrid(g.w, g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					sum += g.at(x+kx, y+ky) * gaussian5[ky+2][kx+2]
				}
			}
			out.set(x, y, sum/273)
		}
	}
	return out
}

// sobel returns the gradient magnitude and direction (radians).
func sobel(g *grid) (mag, dir *grid) {
	mag, dir = newGrid(g.w, g.h), newGrid(g.w, g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			gx := g.at(x+1, y-1) + 2*g.at(x+1, y) + g.at(x+1, y+1) -
				g.at(x-1, y-1) - 2*g.at(x-1, y) - g.at(x-1, y+1)
			gy := g.at(x-1, y+1) + 2*g.at(x, y+1) + g.at(x+1, y+1) -
				g.at(x-1, y-1) - 2*g.at(x, y-1) - g.at(x+1, y-1)
			mag.set(x, y, math.Hypot(gx, gy))
			dir.set(x, y, math.Atan2(gy, gx))
		}
	}
	return mag, dir
}

// suppress keeps a magnitude only where it is a local maximum across the
// edge. The outermost ring is always cleared.
func suppress(mag, dir *grid) *grid {
	out := newGrid(mag.w, mag.h)
	for y := 1; y < mag.h-1; y++ {
		for x := 1; x < mag.w-1; x++ {
			m := mag.at(x, y)
			dx, dy := neighbourStep(dir.at(x, y))
			if m >= mag.at(x+dx, y+dy) && m >= mag.at(x-dx, y-dy) {
				out.set(x, y, m)
			}
		}
	}
	return out
}

// neighbourStep quantizes a gradient direction to one of four neighbour
// offsets.
func neighbourStep(angle float64) (dx, dy int) {
	a := math.Mod(angle+math.Pi, math.Pi) // [0, pi)
	switch {
	case a < math.Pi/8 || a >= 7*math.Pi/8:
		return 1, 0
	case a < 3*math.Pi/8:
		return 1, 1
	case a < 5*math.Pi/8:
		return 0, 1
	default:
		return -1, 1
	}
}

// hysteresis grows edges from samples at or above high through
// 8-connected samples at or above low.
func hysteresis(g *grid, low, high float64) []bool {
	edges := make([]bool, len(g.v))
	stack := make([]int, 0, 64)
	for i, v := range g.v {
		if v >= high && v > 0 && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%g.w, i/g.w
		for ny := max(0, y-1); ny <= min(g.h-1, y+1); ny++ {
			for nx := max(0, x-1); nx <= min(g.w-1, x+1); nx++ {
				j := ny*g.w + nx
				if !edges[j] && g.v[j] >= low && g.v[j] > 0 {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// dilate marks every sample within r (Chebyshev distance) of a marked one.
func dilate(mask []bool, w, h, r int) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		if !m {
			continue
		}
		x, y := i%w, i/w
		for ny := max(0, y-r); ny <= min(h-1, y+r); ny++ {
			for nx := max(0, x-r); nx <= min(w-1, x+r); nx++ {
				out[ny*w+nx] = true
			}
		}
	}
	return out
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
