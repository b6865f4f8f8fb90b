package detection

import (
	"image"
	"math"
	"sort"
)

// Orientation classes of a line relative to the direction of travel.
const (
	Longitudinal = "longitudinal"
	Transverse   = "transverse"
	Diagonal     = "diagonal"
)

// maxLines caps the number of segments returned.
const maxLines = 50

// Line is a straight segment such as a crack, joint or lane marking.
type Line struct {
	Start           Point   `json:"start"`
	End             Point   `json:"end"`
	Length          float64 `json:"length"`
	LengthMM        float64 `json:"length_mm"`
	AngleDegrees    float64 `json:"angle_degrees"`
	Orientation     string  `json:"orientation"`
	Intensity       uint8   `json:"intensity"`
	ThicknessApprox int     `json:"thickness_approx"`
	WidthMM         float64 `json:"width_mm"`
}

// LinesResult contains detected lines and a count per orientation.
type LinesResult struct {
	Lines        []Line `json:"lines"`
	Count        int    `json:"count"`
	Longitudinal int    `json:"longitudinal"`
	Transverse   int    `json:"transverse"`
	Diagonal     int    `json:"diagonal"`
}

// DetectLines finds line segments of at least minLength samples using a
// Hough transform. Angles and orientation are measured in physical space,
// so a segment's class does not depend on the plane's aspect ratio.
func DetectLines(img image.Image, minLength int, scale Scale) (*LinesResult, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := detectEdges(img, width, height)

	maxDist := int(math.Sqrt(float64(width*width + height*height)))
	numAngles := 180
	accumulator := make([][]int, maxDist*2)
	for i := range accumulator {
		accumulator[i] = make([]int, numAngles)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] {
				continue
			}
			for theta := 0; theta < numAngles; theta++ {
				angle := float64(theta) * math.Pi / 180.0
				rho := float64(x)*math.Cos(angle) + float64(y)*math.Sin(angle)
				rhoIdx := int(rho) + maxDist
				if rhoIdx >= 0 && rhoIdx < maxDist*2 {
					accumulator[rhoIdx][theta]++
				}
			}
		}
	}

	type peak struct {
		rho   int
		theta int
		votes int
	}
	peaks := make([]peak, 0)
	threshold := max(minLength/2, 1)

	for rhoIdx := 0; rhoIdx < maxDist*2; rhoIdx++ {
		for theta := 0; theta < numAngles; theta++ {
			if accumulator[rhoIdx][theta] < threshold {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := rhoIdx + dr
					nt := (theta + dt + numAngles) % numAngles
					if nr >= 0 && nr < maxDist*2 && accumulator[nr][nt] > accumulator[rhoIdx][theta] {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{
					rho:   rhoIdx - maxDist,
					theta: theta,
					votes: accumulator[rhoIdx][theta],
				})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	result := &LinesResult{Lines: make([]Line, 0)}

	for _, pk := range peaks {
		if len(result.Lines) >= maxLines {
			break
		}

		angle := float64(pk.theta) * math.Pi / 180.0
		rho := float64(pk.rho)
		cosA := math.Cos(angle)
		sinA := math.Sin(angle)

		linePoints := make([]Point, 0)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if edges[y][x] && math.Abs(float64(x)*cosA+float64(y)*sinA-rho) < 2.0 {
					linePoints = append(linePoints, Point{X: x, Y: y})
				}
			}
		}
		if len(linePoints) < minLength {
			continue
		}

		// Endpoints are the extreme projections along the line direction.
		var startX, startY, endX, endY int
		lo, hi := math.MaxFloat64, -math.MaxFloat64
		for _, p := range linePoints {
			d := -float64(p.X)*sinA + float64(p.Y)*cosA
			if d < lo {
				lo = d
				startX, startY = p.X, p.Y
			}
			if d > hi {
				hi = d
				endX, endY = p.X, p.Y
			}
		}

		dx := float64(endX - startX)
		dy := float64(endY - startY)
		length := math.Sqrt(dx*dx + dy*dy)
		if length < float64(minLength) {
			continue
		}

		mx, my := scale.mm(dx, dy)
		angleDeg := math.Atan2(my, mx) * 180 / math.Pi
		orientation := classify(angleDeg)

		thickness := estimateLineThickness(edges, startX, startY, endX, endY, width, height)
		var widthMM float64
		switch orientation {
		case Longitudinal:
			widthMM, _ = scale.mm(float64(thickness), 0)
		case Transverse:
			_, widthMM = scale.mm(0, float64(thickness))
		default:
			wx, wy := scale.mm(float64(thickness), float64(thickness))
			widthMM = (wx + wy) / 2
		}

		midX := (startX + endX) / 2
		midY := (startY + endY) / 2

		result.Lines = append(result.Lines, Line{
			Start:           Point{X: startX + bounds.Min.X, Y: startY + bounds.Min.Y},
			End:             Point{X: endX + bounds.Min.X, Y: endY + bounds.Min.Y},
			Length:          round(length, 1),
			LengthMM:        round(math.Hypot(mx, my), 1),
			AngleDegrees:    round(angleDeg, 1),
			Orientation:     orientation,
			Intensity:       grayValue(img, midX+bounds.Min.X, midY+bounds.Min.Y),
			ThicknessApprox: thickness,
			WidthMM:         round(widthMM, 1),
		})
		switch orientation {
		case Longitudinal:
			result.Longitudinal++
		case Transverse:
			result.Transverse++
		default:
			result.Diagonal++
		}
	}

	result.Count = len(result.Lines)
	return result, nil
}

// classify folds an angle in degrees onto [0, 90] and buckets it: within
// 20 degrees of the X axis is transverse, within 20 of Y is longitudinal.
func classify(angleDeg float64) string {
	a := math.Abs(angleDeg)
	if a > 90 {
		a = 180 - a
	}
	switch {
	case a <= 20:
		return Transverse
	case a >= 70:
		return Longitudinal
	default:
		return Diagonal
	}
}

// estimateLineThickness counts edge samples on a perpendicular through
// the midpoint, up to 10 samples either side. The result is at least 1.
func estimateLineThickness(edges [][]bool, x1, y1, x2, y2, width, height int) int {
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return 1
	}

	perpX := -dy / length
	perpY := dx / length

	midX := float64(x1+x2) / 2
	midY := float64(y1+y2) / 2

	thickness := 0
	for d := -10; d <= 10; d++ {
		px := int(midX + float64(d)*perpX)
		py := int(midY + float64(d)*perpY)
		if px >= 0 && px < width && py >= 0 && py < height && edges[py][px] {
			thickness++
		}
	}

	if thickness < 1 {
		thickness = 1
	}
	return thickness
}
