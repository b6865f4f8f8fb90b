package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// Point represents a 2D point
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceResult contains measurement information
type DistanceResult struct {
	DistancePixels        float64 `json:"distance_pixels"`
	DeltaX                int     `json:"delta_x"`
	DeltaY                int     `json:"delta_y"`
	AngleDegrees          float64 `json:"angle_degrees"`
	DistanceMM            float64 `json:"distance_mm"`
	TransverseMM          float64 `json:"transverse_mm"`
	LongitudinalMM        float64 `json:"longitudinal_mm"`
	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentLength float64 `json:"distance_percent_length"`
}

// MeasureDistance calculates the distance between two samples of an image,
// in samples and in millimetres along and across the lane.
func MeasureDistance(l psi.PlaneLayout, x1, y1, x2, y2 int) (*DistanceResult, error) {
	full := l.Full()
	if !full.Contains(x1, y1) || !full.Contains(x2, y2) {
		return nil, fmt.Errorf("points (%d,%d) and (%d,%d) must lie inside the %dx%d image",
			x1, y1, x2, y2, l.Width, l.Length)
	}

	deltaX := x2 - x1
	deltaY := y2 - y1
	distance := math.Hypot(float64(deltaX), float64(deltaY))

	// 0 = across the lane to the right, 90 = along the direction of travel
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	tmm := float64(deltaX) * l.TransverseResolution
	lmm := float64(deltaY) * l.LongitudinalResolution

	return &DistanceResult{
		DistancePixels:        round(distance, 2),
		DeltaX:                deltaX,
		DeltaY:                deltaY,
		AngleDegrees:          round(angle, 1),
		DistanceMM:            round(math.Hypot(tmm, lmm), 2),
		TransverseMM:          round(tmm, 2),
		LongitudinalMM:        round(lmm, 2),
		DistancePercentWidth:  round(distance/float64(l.Width)*100, 1),
		DistancePercentLength: round(distance/float64(l.Length)*100, 1),
	}, nil
}

// CompareRegionsResult contains region comparison information
type CompareRegionsResult struct {
	SimilarityScore  float64      `json:"similarity_score"`
	SamplesDifferent int          `json:"samples_different"`
	TotalSamples     int          `json:"total_samples"`
	SameSize         bool         `json:"same_size"`
	Region1Size      Point        `json:"region1_size"`
	Region2Size      Point        `json:"region2_size"`
	MeanDifference   float64      `json:"mean_difference"`
	Correlation      *float64     `json:"correlation,omitempty"`
	Region1Stats     *StatsResult `json:"region1_stats"`
	Region2Stats     *StatsResult `json:"region2_stats"`
}

// CompareRegions compares two planes sample by sample over their common
// top-left-aligned extent. Samples whose absolute difference exceeds
// threshold count as different.
func CompareRegions(a, b *Plane, threshold float64) (*CompareRegionsResult, error) {
	if a.Layout.BytesPerSample != b.Layout.BytesPerSample {
		return nil, fmt.Errorf("cannot compare %d-byte and %d-byte samples",
			a.Layout.BytesPerSample, b.Layout.BytesPerSample)
	}

	minW := min(a.Region.Width, b.Region.Width)
	minH := min(a.Region.Height, b.Region.Height)
	total := minW * minH

	av := make([]float64, 0, total)
	bv := make([]float64, 0, total)
	diffs := make([]float64, 0, total)
	different := 0
	for y := 0; y < minH; y++ {
		for x := 0; x < minW; x++ {
			va, vb := float64(a.at(x, y)), float64(b.at(x, y))
			av = append(av, va)
			bv = append(bv, vb)
			d := math.Abs(va - vb)
			diffs = append(diffs, d)
			if d > threshold {
				different++
			}
		}
	}

	statsA, err := PlaneStats(a, false)
	if err != nil {
		return nil, err
	}
	statsB, err := PlaneStats(b, false)
	if err != nil {
		return nil, err
	}

	res := &CompareRegionsResult{
		SimilarityScore:  round(1-float64(different)/float64(total), 3),
		SamplesDifferent: different,
		TotalSamples:     total,
		SameSize:         a.Region.Width == b.Region.Width && a.Region.Height == b.Region.Height,
		Region1Size:      Point{X: a.Region.Width, Y: a.Region.Height},
		Region2Size:      Point{X: b.Region.Width, Y: b.Region.Height},
		MeanDifference:   round(stat.Mean(diffs, nil), 2),
		Region1Stats:     statsA,
		Region2Stats:     statsB,
	}
	if c := stat.Correlation(av, bv, nil); !math.IsNaN(c) {
		c = round(c, 3)
		res.Correlation = &c
	}
	return res, nil
}
