package imaging

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// Plane is a decoded window of one survey image.
//
// Data holds Region.Height rows of Region.Width samples, row-major, one
// byte per 2D sample or two little-endian bytes per 3D sample.
type Plane struct {
	Layout psi.PlaneLayout
	Region psi.Region
	Data   []byte
}

// Value returns the raw sample at image coordinates (x, y), which must lie
// inside the plane's region.
func (p *Plane) Value(x, y int) (uint16, error) {
	if !p.Region.Contains(x, y) {
		return 0, fmt.Errorf("coordinates (%d,%d) outside plane region %s", x, y, p.Region)
	}
	return p.at(x-p.Region.X, y-p.Region.Y), nil
}

// at reads the sample at region-relative coordinates.
func (p *Plane) at(x, y int) uint16 {
	i := y*p.Region.Width + x
	if p.Layout.BytesPerSample == 2 {
		return binary.LittleEndian.Uint16(p.Data[i*2:])
	}
	return uint16(p.Data[i])
}

// Values returns every sample of the plane as float64, row-major.
func (p *Plane) Values() []float64 {
	out := make([]float64, 0, p.Region.Width*p.Region.Height)
	for y := 0; y < p.Region.Height; y++ {
		for x := 0; x < p.Region.Width; x++ {
			out = append(out, float64(p.at(x, y)))
		}
	}
	return out
}

// Height converts a raw 3D sample to millimetres using the vertical
// resolution. It returns false for 2D planes.
func (p *Plane) Height(raw uint16) (float64, bool) {
	if p.Layout.Image != psi.Image3D || p.Layout.VerticalResolution == 0 {
		return 0, false
	}
	return float64(raw) * p.Layout.VerticalResolution, true
}

// Image wraps the plane's samples as a grayscale image whose bounds match
// the plane's region in image coordinates.
func (p *Plane) Image() (image.Image, error) {
	img, err := PlaneImage(p.Data, p.Region.Width, p.Region.Height, p.Layout.BytesPerSample)
	if err != nil {
		return nil, err
	}
	switch g := img.(type) {
	case *image.Gray:
		g.Rect = g.Rect.Add(image.Pt(p.Region.X, p.Region.Y))
	case *image.Gray16:
		g.Rect = g.Rect.Add(image.Pt(p.Region.X, p.Region.Y))
	}
	return img, nil
}

// PlaneImage builds an *image.Gray (one byte per sample) or *image.Gray16
// (two little-endian bytes per sample) from raw plane data.
func PlaneImage(data []byte, width, height, bytesPerSample int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid plane size %dx%d", width, height)
	}
	if want := width * height * bytesPerSample; len(data) != want {
		return nil, fmt.Errorf("plane data is %d bytes, want %d", len(data), want)
	}

	rect := image.Rect(0, 0, width, height)
	switch bytesPerSample {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, data)
		return img, nil
	case 2:
		img := image.NewGray16(rect)
		for i := 0; i < width*height; i++ {
			v := binary.LittleEndian.Uint16(data[i*2:])
			img.SetGray16(i%width, i/width, color.Gray16{Y: v})
		}
		return img, nil
	}
	return nil, fmt.Errorf("unsupported sample width %d bytes", bytesPerSample)
}

// Normalized returns the plane scaled to [0,1] by its own minimum and
// maximum, as rows. A flat plane maps to all zeros.
func (p *Plane) Normalized() [][]float64 {
	lo, hi := uint16(0xFFFF), uint16(0)
	for y := 0; y < p.Region.Height; y++ {
		for x := 0; x < p.Region.Width; x++ {
			v := p.at(x, y)
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	span := float64(hi) - float64(lo)

	rows := make([][]float64, p.Region.Height)
	for y := range rows {
		rows[y] = make([]float64, p.Region.Width)
		if span == 0 {
			continue
		}
		for x := range rows[y] {
			rows[y][x] = (float64(p.at(x, y)) - float64(lo)) / span
		}
	}
	return rows
}
