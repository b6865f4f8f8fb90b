package imaging

import (
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// newPlane2D builds a full-image 8-bit plane with 1 mm samples.
func newPlane2D(width, length int, fill func(x, y int) uint8) *Plane {
	data := make([]byte, width*length)
	for y := 0; y < length; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = fill(x, y)
		}
	}
	return &Plane{
		Layout: psi.PlaneLayout{
			Image:                  psi.Image2D,
			Width:                  width,
			Length:                 length,
			BytesPerSample:         1,
			Codec:                  "uncompressed",
			Uncompressed:           true,
			DataSize:               int64(len(data)),
			LongitudinalResolution: 1,
			TransverseResolution:   1,
		},
		Region: psi.Region{Width: width, Height: length},
		Data:   data,
	}
}

// newPlane3D builds a full-image 16-bit plane with 1 mm samples and a
// 0.05 mm vertical resolution.
func newPlane3D(width, length int, fill func(x, y int) uint16) *Plane {
	data := make([]byte, width*length*2)
	for y := 0; y < length; y++ {
		for x := 0; x < width; x++ {
			binary.LittleEndian.PutUint16(data[(y*width+x)*2:], fill(x, y))
		}
	}
	return &Plane{
		Layout: psi.PlaneLayout{
			Image:                  psi.Image3D,
			Width:                  width,
			Length:                 length,
			BytesPerSample:         2,
			Codec:                  "uncompressed",
			Uncompressed:           true,
			DataSize:               int64(len(data)),
			LongitudinalResolution: 1,
			TransverseResolution:   1,
			VerticalResolution:     0.05,
		},
		Region: psi.Region{Width: width, Height: length},
		Data:   data,
	}
}

func solid2D(v uint8) func(x, y int) uint8 { return func(int, int) uint8 { return v } }

// decodePNG decodes a base64 PNG produced by the package.
func decodePNG(t *testing.T, b64 string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return img
}

func rgb8(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
