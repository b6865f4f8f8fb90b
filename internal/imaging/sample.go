package imaging

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// SampleResult is the value of one sample in several forms.
type SampleResult struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Raw uint16 `json:"raw"`
	// HeightMM is the raw 3D value scaled by the vertical resolution.
	HeightMM *float64 `json:"height_mm,omitempty"`
	// Hex is the 2D intensity as a gray "#RRGGBB".
	Hex string `json:"hex,omitempty"`
}

// SampleValue reads the sample at image coordinates (x, y).
//
// The coordinates are absolute within the survey image and must fall
// inside the plane's region.
func SampleValue(p *Plane, x, y int) (*SampleResult, error) {
	raw, err := p.Value(x, y)
	if err != nil {
		return nil, err
	}

	res := &SampleResult{X: x, Y: y, Raw: raw}
	if h, ok := p.Height(raw); ok {
		res.HeightMM = &h
	}
	if p.Layout.Image == psi.Image2D {
		v := float64(raw) / 255
		res.Hex = colorful.Color{R: v, G: v, B: v}.Hex()
	}
	return res, nil
}

// LabeledPoint is a coordinate with an optional label.
type LabeledPoint struct {
	X     int
	Y     int
	Label string
}

// LabeledSampleResult pairs a sample with its label.
type LabeledSampleResult struct {
	Label string `json:"label,omitempty"`
	SampleResult
}

// MultiSampleResult holds samples in input order.
type MultiSampleResult struct {
	Samples []LabeledSampleResult `json:"samples"`
}

// SampleValuesMulti samples several points. Any point outside the plane
// fails the whole call.
func SampleValuesMulti(p *Plane, points []LabeledPoint) (*MultiSampleResult, error) {
	results := make([]LabeledSampleResult, 0, len(points))

	for _, pt := range points {
		s, err := SampleValue(p, pt.X, pt.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to sample point (%d,%d): %w", pt.X, pt.Y, err)
		}
		results = append(results, LabeledSampleResult{Label: pt.Label, SampleResult: *s})
	}

	return &MultiSampleResult{Samples: results}, nil
}
